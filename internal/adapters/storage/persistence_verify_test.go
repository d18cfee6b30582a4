package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// TestRestartPersistence verifies that devices, alerts and capture rows
// survive a close and reopen of the database file.
func TestRestartPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "restart.db")

	store, err := NewSQLiteAdapter(path)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	dev := domain.Device{
		MAC:      "AA:BB:CC:DD:EE:FF",
		IP:       "192.168.1.50",
		Type:     domain.TypeIoT,
		Category: domain.CategoryCamera,
		LastSeen: time.Now(),
	}
	if err := store.SaveDevice(ctx, dev); err != nil {
		t.Fatalf("Failed to save device: %v", err)
	}

	alert := &domain.SecurityAlert{
		AlertID:         domain.NewAlertID("port_scan", time.Now()),
		AlertType:       "port_scan",
		Severity:        domain.SeverityHigh,
		Title:           "Port Scan Detected from " + dev.IP,
		SourceIP:        dev.IP,
		Status:          domain.AlertActive,
		CreatedAt:       time.Now(),
		LastSeen:        time.Now(),
		RecurrenceCount: 1,
	}
	if err := store.CreateAlert(ctx, alert); err != nil {
		t.Fatalf("Failed to create alert: %v", err)
	}

	spec := domain.TcpdumpTableSpec()
	table, err := store.CreateRunTable(ctx, spec, time.Now())
	if err != nil {
		t.Fatalf("Failed to create run table: %v", err)
	}
	rec := domain.TcpdumpRecord{
		Timestamp: time.Now(), SrcIP: "192.168.1.50", SrcPort: 5000,
		DestIP: "8.8.8.8", DestPort: 53, Protocol: "UDP", FrameLength: 74,
	}
	if err := store.InsertRows(ctx, table, spec.Columns, []domain.Row{rec.Row()}); err != nil {
		t.Fatalf("Failed to insert rows: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close storage: %v", err)
	}

	// Reopen from the same file, as a process restart would.
	store2, err := NewSQLiteAdapter(path)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer store2.Close()

	loaded, err := store2.GetDeviceByMAC(ctx, dev.MAC)
	if err != nil {
		t.Fatalf("Failed to load device: %v", err)
	}
	if loaded.IP != dev.IP || loaded.Category != dev.Category {
		t.Errorf("Device mismatch after reopen: got %+v", loaded)
	}

	storedAlert, err := store2.GetAlertByAlertID(ctx, alert.AlertID)
	if err != nil {
		t.Fatalf("Failed to load alert: %v", err)
	}
	if storedAlert.Status != domain.AlertActive {
		t.Errorf("Alert status mismatch: got %v", storedAlert.Status)
	}

	latest, err := store2.LatestTable(ctx, domain.ToolTcpdump)
	if err != nil {
		t.Fatalf("Failed to find latest table: %v", err)
	}
	if latest != table {
		t.Errorf("Latest table mismatch: got %q, want %q", latest, table)
	}
	count, err := store2.CountRows(ctx, latest)
	if err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("Row count mismatch: got %d, want 1", count)
	}
}
