package ledger

import (
	"context"
	"sync"
)

// Store persists mined blocks. The in-memory chain remains the authority;
// a store only records sealed blocks and replays them at startup.
type Store interface {
	// Load returns all persisted blocks in index order. An empty slice
	// means a fresh chain should be started.
	Load(ctx context.Context) ([]*Block, error)

	// AppendBlock persists one newly mined block.
	AppendBlock(ctx context.Context, b *Block) error
}

// MemoryStore is an in-process Store for testing and single-run deployments.
type MemoryStore struct {
	mu     sync.Mutex
	blocks []*Block
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) ([]*Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Block, len(s.blocks))
	copy(out, s.blocks)
	return out, nil
}

// AppendBlock implements Store.
func (s *MemoryStore) AppendBlock(_ context.Context, b *Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, b)
	return nil
}
