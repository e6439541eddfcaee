package artifacts

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
)

// MemoryStore holds encoded blobs in memory. It backs tests and the CLI dry-run mode.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[uuid.UUID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[uuid.UUID][]byte{}}
}

func (s *MemoryStore) Get(ctx context.Context, plantID uuid.UUID) (*Artifact, error) {
	s.mu.RLock()
	raw, ok := s.blobs[plantID]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.ErrArtifactNotFound
	}
	return Decode(raw)
}

func (s *MemoryStore) Put(ctx context.Context, a *Artifact) error {
	raw, err := Encode(a)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[a.PlantID] = raw
	s.mu.Unlock()
	return nil
}

// PutRaw stores bytes as-is; tests use it to plant corrupt artifacts.
func (s *MemoryStore) PutRaw(plantID uuid.UUID, raw []byte) {
	s.mu.Lock()
	s.blobs[plantID] = append([]byte(nil), raw...)
	s.mu.Unlock()
}

func (s *MemoryStore) Exists(ctx context.Context, plantID uuid.UUID) (bool, error) {
	s.mu.RLock()
	_, ok := s.blobs[plantID]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.blobs))
	for _, raw := range s.blobs {
		if a, err := Decode(raw); err == nil {
			out = append(out, a.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlantID.String() < out[j].PlantID.String() })
	return out, nil
}
