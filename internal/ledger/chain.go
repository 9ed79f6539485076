package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forensic-chain/forchain/internal/custody/model"
)

// ValidationError reports the first block that failed chain verification.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("chain invalid at block %d: %s", e.Index, e.Reason)
}

// Config configures a Chain.
type Config struct {
	// Difficulty is the number of leading zero hex characters a block hash
	// must carry. Must be >= 0.
	Difficulty int

	// MaxNonceAttempts caps the proof-of-work search.
	// Zero selects DefaultMaxNonceAttempts.
	MaxNonceAttempts uint64

	// Store, when non-nil, persists mined blocks and supplies previously
	// mined blocks at startup.
	Store Store

	// Logger may be nil.
	Logger *zap.Logger
}

// Chain is the authoritative block sequence. It owns the blocks exclusively;
// mutating access is serialised by the write lock and mining runs inside it,
// so no two mining operations can overlap.
type Chain struct {
	mu          sync.RWMutex
	blocks      []*Block
	difficulty  int
	maxAttempts uint64
	store       Store
	logger      *zap.Logger
}

// NewChain creates a chain and mines its genesis block, or resumes from the
// blocks held by cfg.Store when it already contains a chain. A resumed chain
// is verified before use.
func NewChain(ctx context.Context, cfg Config) (*Chain, error) {
	if cfg.Difficulty < 0 {
		return nil, fmt.Errorf("difficulty must be non-negative, got %d", cfg.Difficulty)
	}
	if cfg.MaxNonceAttempts == 0 {
		cfg.MaxNonceAttempts = DefaultMaxNonceAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Chain{
		difficulty:  cfg.Difficulty,
		maxAttempts: cfg.MaxNonceAttempts,
		store:       cfg.Store,
		logger:      cfg.Logger,
	}

	if c.store != nil {
		stored, err := c.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load chain: %w", err)
		}
		if len(stored) > 0 {
			c.blocks = stored
			if err := c.Verify(); err != nil {
				return nil, fmt.Errorf("stored chain failed verification: %w", err)
			}
			c.logger.Info("chain resumed from store",
				zap.Int("blocks", len(stored)),
				zap.String("latest_hash", stored[len(stored)-1].Hash),
			)
			return c, nil
		}
	}

	genesis := &Block{
		Index:        0,
		Timestamp:    time.Now().UTC(),
		Transactions: []model.Transaction{},
		PreviousHash: GenesisPreviousHash,
	}
	if err := genesis.mine(c.difficulty, c.maxAttempts); err != nil {
		return nil, fmt.Errorf("mine genesis block: %w", err)
	}
	c.blocks = []*Block{genesis}

	if c.store != nil {
		if err := c.store.AppendBlock(ctx, genesis); err != nil {
			return nil, fmt.Errorf("persist genesis block: %w", err)
		}
	}

	c.logger.Info("genesis block mined",
		zap.Uint64("nonce", genesis.Nonce),
		zap.String("hash", genesis.Hash),
	)
	return c, nil
}

// MineAndAppend seals the given transactions into a new mined block and
// appends it to the chain. The caller is expected to hold exclusive write
// access to the pending pool the transactions were snapshotted from.
func (c *Chain) MineAndAppend(ctx context.Context, txs []model.Transaction) (*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	latest := c.blocks[len(c.blocks)-1]
	block := &Block{
		Index:        latest.Index + 1,
		Timestamp:    time.Now().UTC(),
		Transactions: txs,
		PreviousHash: latest.Hash,
	}

	start := time.Now()
	if err := block.mine(c.difficulty, c.maxAttempts); err != nil {
		return nil, err
	}
	c.blocks = append(c.blocks, block)

	if c.store != nil {
		if err := c.store.AppendBlock(ctx, block); err != nil {
			// The in-memory chain stays authoritative; persistence lag is
			// surfaced but does not reject the mined block.
			c.logger.Error("persist mined block failed",
				zap.Int("index", block.Index),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("block mined",
		zap.Int("index", block.Index),
		zap.Int("transactions", len(txs)),
		zap.Uint64("nonce", block.Nonce),
		zap.Duration("elapsed", time.Since(start)),
	)
	return block, nil
}

// Latest returns the chain tip.
func (c *Chain) Latest() *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Len returns the number of blocks, genesis included.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Blocks returns a snapshot of the full block sequence.
func (c *Chain) Blocks() []*Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Difficulty returns the configured difficulty.
func (c *Chain) Difficulty() int {
	return c.difficulty
}

// Verify walks the whole chain and checks, for every block, that the stored
// hash matches a recomputation of the block's content, that the hash meets
// the difficulty predicate, and that the block links to its predecessor.
// The first failure is reported as a *ValidationError; no repair is
// attempted.
func (c *Chain) Verify() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i, block := range c.blocks {
		recomputed, err := block.ComputeHash()
		if err != nil {
			return &ValidationError{Index: i, Reason: err.Error()}
		}
		if recomputed != block.Hash {
			return &ValidationError{Index: i, Reason: "stored hash does not match content"}
		}
		if !MeetsDifficulty(block.Hash, c.difficulty) {
			return &ValidationError{Index: i, Reason: "hash does not satisfy difficulty"}
		}
		if i == 0 {
			if block.PreviousHash != GenesisPreviousHash {
				return &ValidationError{Index: 0, Reason: "genesis previous hash is not the sentinel"}
			}
			continue
		}
		if block.PreviousHash != c.blocks[i-1].Hash {
			return &ValidationError{Index: i, Reason: "previous hash does not match prior block"}
		}
	}
	return nil
}
