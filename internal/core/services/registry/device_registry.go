package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const numShards = 16

type deviceShard struct {
	mu      sync.RWMutex
	devices map[string]domain.Device
}

// Registry is the in-memory device inventory sitting in front of the
// store. Writers serialize on a single mutex (the tracker cycle is the
// only steady writer); the sixteen shards keep reads concurrent with
// an in-flight write.
//
// Identity is MAC-first: a device is keyed by MAC as soon as ARP has
// supplied one, by IP until then. An IP-only sighting matches an
// existing record by address; once the MAC turns up the record moves
// to its MAC slot.
type Registry struct {
	shards  [numShards]*deviceShard
	merger  *Merger
	writeMu sync.Mutex
}

var _ ports.DeviceRegistry = (*Registry)(nil)

// NewRegistry creates an empty sharded registry.
func NewRegistry() *Registry {
	r := &Registry{merger: NewMerger()}
	for i := range r.shards {
		r.shards[i] = &deviceShard{devices: make(map[string]domain.Device)}
	}
	return r
}

func (r *Registry) shard(key string) *deviceShard {
	// FNV-1a
	hash := uint32(2166136261)
	for i := 0; i < len(key); i++ {
		hash ^= uint32(key[i])
		hash *= 16777619
	}
	return r.shards[hash%numShards]
}

// ProcessDevice merges an observation into the registry and reports
// whether it discovered a new device.
func (r *Registry) ProcessDevice(obs domain.Device) (domain.Device, bool) {
	if obs.LastSeen.IsZero() {
		obs.LastSeen = time.Now()
	}
	if obs.FirstSeen.IsZero() {
		obs.FirstSeen = obs.LastSeen
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	existing, oldKey, found := r.lookup(obs)
	if !found {
		if obs.Type == "" {
			obs.Type = domain.TypeUnknown
		}
		if obs.Category == "" {
			obs.Category = domain.CategoryUnknown
		}
		if obs.SecurityScore == 0 {
			obs.SecurityScore = domain.InitialScore
		}
		r.put(obs.Key(), obs)
		return obs, true
	}

	r.merger.Merge(&existing, obs)
	newKey := existing.Key()
	if newKey != oldKey {
		// ARP supplied the MAC; the record moves out of its IP slot.
		r.remove(oldKey)
	}
	r.put(newKey, existing)
	return existing, false
}

// lookup finds the record an observation belongs to and the key it is
// stored under. A MAC observation never matches a record that already
// owns a different MAC: same address with another MAC is a new device.
func (r *Registry) lookup(obs domain.Device) (domain.Device, string, bool) {
	if obs.MAC != "" {
		s := r.shard(obs.MAC)
		s.mu.RLock()
		d, ok := s.devices[obs.MAC]
		s.mu.RUnlock()
		if ok {
			return d, obs.MAC, true
		}
	}
	if obs.IP == "" {
		return domain.Device{}, "", false
	}
	for _, s := range r.shards {
		s.mu.RLock()
		for key, d := range s.devices {
			if d.IP != obs.IP {
				continue
			}
			if obs.MAC != "" && d.MAC != "" && d.MAC != obs.MAC {
				continue
			}
			s.mu.RUnlock()
			return d, key, true
		}
		s.mu.RUnlock()
	}
	return domain.Device{}, "", false
}

func (r *Registry) put(key string, d domain.Device) {
	s := r.shard(key)
	s.mu.Lock()
	s.devices[key] = d
	s.mu.Unlock()
}

func (r *Registry) remove(key string) {
	s := r.shard(key)
	s.mu.Lock()
	delete(s.devices, key)
	s.mu.Unlock()
}

// GetDevice returns a device by MAC.
func (r *Registry) GetDevice(mac string) (domain.Device, bool) {
	s := r.shard(mac)
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[mac]
	return d, ok
}

// GetByIP returns a device by its current IP.
func (r *Registry) GetByIP(ip string) (domain.Device, bool) {
	for _, s := range r.shards {
		s.mu.RLock()
		for _, d := range s.devices {
			if d.IP == ip {
				s.mu.RUnlock()
				return d, true
			}
		}
		s.mu.RUnlock()
	}
	return domain.Device{}, false
}

// GetAllDevices returns all known devices, most recently seen first.
func (r *Registry) GetAllDevices() []domain.Device {
	var all []domain.Device
	for _, s := range r.shards {
		s.mu.RLock()
		for _, d := range s.devices {
			all = append(all, d)
		}
		s.mu.RUnlock()
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastSeen.After(all[j].LastSeen)
	})
	return all
}

// StaleDevices returns devices silent since the cutoff.
func (r *Registry) StaleDevices(cutoff time.Time) []domain.Device {
	var stale []domain.Device
	for _, s := range r.shards {
		s.mu.RLock()
		for _, d := range s.devices {
			if d.LastSeen.Before(cutoff) {
				stale = append(stale, d)
			}
		}
		s.mu.RUnlock()
	}
	return stale
}

// GetActiveCount returns the number of devices currently tracked.
func (r *Registry) GetActiveCount() int {
	count := 0
	for _, s := range r.shards {
		s.mu.RLock()
		count += len(s.devices)
		s.mu.RUnlock()
	}
	return count
}

// SetScore writes a computed score and grade onto the device stored under
// key. The merger never carries score fields, so this is the only way a
// score changes after ProcessDevice.
func (r *Registry) SetScore(key string, score int, grade string) bool {
	if key == "" {
		return false
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	s := r.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[key]
	if !ok {
		return false
	}
	d.SecurityScore = score
	d.SecurityGrade = grade
	s.devices[key] = d
	return true
}

// Clear wipes all in-memory state.
func (r *Registry) Clear() {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	for _, s := range r.shards {
		s.mu.Lock()
		s.devices = make(map[string]domain.Device)
		s.mu.Unlock()
	}
}

// Load seeds the registry from persisted devices at startup, so the
// first tracker cycle merges instead of rediscovering the network.
func (r *Registry) Load(devices []domain.Device) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	for _, d := range devices {
		key := d.Key()
		if key == "" {
			continue
		}
		r.put(key, d)
	}
}
