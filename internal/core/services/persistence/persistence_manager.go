package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// Manager is the write-behind queue between the in-memory registry and
// the device table. Discovery cycles hand it merged records; it batches
// them and writes once per interval or once per batchSize, whichever
// comes first. The buffer is keyed by device identity, so a device
// touched five times in one window costs one row write.
type Manager struct {
	store       ports.DeviceStore
	persistChan chan domain.Device
	batchSize   int
	interval    time.Duration
	enabled     bool
	mu          sync.RWMutex
}

// NewManager creates the write-behind queue. bufferSize bounds how many
// pending devices the channel holds before Persist starts dropping.
func NewManager(store ports.DeviceStore, bufferSize int) *Manager {
	return &Manager{
		store:       store,
		persistChan: make(chan domain.Device, bufferSize),
		batchSize:   100,
		interval:    5 * time.Second,
		enabled:     true,
	}
}

// Persist queues a device for persistence. Non-blocking: when the
// buffer is full the device is dropped and the next cycle re-queues it.
func (m *Manager) Persist(device domain.Device) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.enabled {
		return
	}
	select {
	case m.persistChan <- device:
	default:
		slog.Warn("persistence buffer full, dropping device", "key", device.Key())
	}
}

// IsEnabled returns the current persistence status.
func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// SetEnabled toggles persistence. The flush-all operation pauses writes
// while it clears tables so the queue cannot race re-inserts.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// Run drives the batch loop until the context ends, then writes out
// whatever is still buffered.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	buffer := make(map[string]domain.Device)
	for {
		select {
		case <-ctx.Done():
			// The loop context is gone; the final flush gets its own.
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			m.flush(flushCtx, buffer)
			cancel()
			return ctx.Err()
		case device := <-m.persistChan:
			buffer[device.Key()] = device
			if len(buffer) >= m.batchSize {
				m.flush(ctx, buffer)
				buffer = make(map[string]domain.Device)
			}
		case <-ticker.C:
			if len(buffer) > 0 {
				m.flush(ctx, buffer)
				buffer = make(map[string]domain.Device)
			}
		}
	}
}

func (m *Manager) flush(ctx context.Context, buffer map[string]domain.Device) {
	if len(buffer) == 0 {
		return
	}
	devices := make([]domain.Device, 0, len(buffer))
	for _, d := range buffer {
		devices = append(devices, d)
	}
	if err := m.store.SaveDevicesBatch(ctx, devices); err != nil {
		slog.Error("device batch save failed", "devices", len(devices), "error", err)
		return
	}
	slog.Debug("device batch saved", "devices", len(devices))
}
