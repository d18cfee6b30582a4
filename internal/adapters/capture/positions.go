package capture

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// OffsetStore persists a single byte offset for one tailed log file.
// The position commits only after the rows it covers are stored, so a
// crash between read and save replays rows instead of dropping them.
type OffsetStore struct {
	path string
}

// NewOffsetStore creates an offset store backed by the given file.
func NewOffsetStore(path string) *OffsetStore {
	return &OffsetStore{path: path}
}

func (s *OffsetStore) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *OffsetStore) Save(ctx context.Context, position string) error {
	return os.WriteFile(s.path, []byte(position), 0644)
}

func (s *OffsetStore) Reset(ctx context.Context) error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Offset returns the saved position as a byte count. Unreadable or
// corrupt state maps to zero so a damaged file re-tails from the start.
func (s *OffsetStore) Offset(ctx context.Context) int64 {
	raw, err := s.Load(ctx)
	if err != nil || raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SetOffset commits a new byte position.
func (s *OffsetStore) SetOffset(ctx context.Context, offset int64) error {
	return s.Save(ctx, strconv.FormatInt(offset, 10))
}

// OffsetMapStore persists byte offsets for several files in one JSON
// document, keyed by path. The suricata collector uses it to track
// eve.json across log rotations.
type OffsetMapStore struct {
	path string
}

// NewOffsetMapStore creates a map store backed by the given file.
func NewOffsetMapStore(path string) *OffsetMapStore {
	return &OffsetMapStore{path: path}
}

func (s *OffsetMapStore) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *OffsetMapStore) Save(ctx context.Context, position string) error {
	return os.WriteFile(s.path, []byte(position), 0644)
}

func (s *OffsetMapStore) Reset(ctx context.Context) error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *OffsetMapStore) load(ctx context.Context) map[string]int64 {
	offsets := make(map[string]int64)
	raw, err := s.Load(ctx)
	if err != nil || raw == "" {
		return offsets
	}
	if err := json.Unmarshal([]byte(raw), &offsets); err != nil {
		return make(map[string]int64)
	}
	return offsets
}

// OffsetFor returns the saved position for one tracked file.
func (s *OffsetMapStore) OffsetFor(ctx context.Context, path string) int64 {
	off := s.load(ctx)[path]
	if off < 0 {
		return 0
	}
	return off
}

// SetOffsetFor commits a new position for one tracked file.
func (s *OffsetMapStore) SetOffsetFor(ctx context.Context, path string, offset int64) error {
	offsets := s.load(ctx)
	offsets[path] = offset
	data, err := json.Marshal(offsets)
	if err != nil {
		return err
	}
	return s.Save(ctx, string(data))
}

// ProcessedListStore remembers which capture files have already been
// ingested. Entries carry the file's mtime, so a ring-buffer slot that
// gets rewritten under the same name is picked up again.
type ProcessedListStore struct {
	path string
}

// NewProcessedListStore creates a processed-file store backed by the
// given file.
func NewProcessedListStore(path string) *ProcessedListStore {
	return &ProcessedListStore{path: path}
}

func (s *ProcessedListStore) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *ProcessedListStore) Save(ctx context.Context, position string) error {
	return os.WriteFile(s.path, []byte(position), 0644)
}

func (s *ProcessedListStore) Reset(ctx context.Context) error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *ProcessedListStore) entries(ctx context.Context) []string {
	var list []string
	raw, err := s.Load(ctx)
	if err != nil || raw == "" {
		return list
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

func processedKey(name string, mtimeUnix int64) string {
	return name + "|" + strconv.FormatInt(mtimeUnix, 10)
}

// IsProcessed reports whether the file, at this exact mtime, was
// already ingested.
func (s *ProcessedListStore) IsProcessed(ctx context.Context, name string, mtimeUnix int64) bool {
	key := processedKey(name, mtimeUnix)
	for _, e := range s.entries(ctx) {
		if e == key {
			return true
		}
	}
	return false
}

// MarkProcessed records the file as ingested and drops stale entries
// for the same name so the list stays bounded.
func (s *ProcessedListStore) MarkProcessed(ctx context.Context, name string, mtimeUnix int64) error {
	kept := []string{processedKey(name, mtimeUnix)}
	prefix := name + "|"
	for _, e := range s.entries(ctx) {
		if !strings.HasPrefix(e, prefix) {
			kept = append(kept, e)
		}
	}
	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return s.Save(ctx, string(data))
}

// Forget removes every entry for the named file.
func (s *ProcessedListStore) Forget(ctx context.Context, name string) error {
	var kept []string
	prefix := name + "|"
	for _, e := range s.entries(ctx) {
		if !strings.HasPrefix(e, prefix) {
			kept = append(kept, e)
		}
	}
	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return s.Save(ctx, string(data))
}

var (
	_ ports.PositionStore = (*OffsetStore)(nil)
	_ ports.PositionStore = (*OffsetMapStore)(nil)
	_ ports.PositionStore = (*ProcessedListStore)(nil)
)
