package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forensic-chain/forchain/internal/custody/model"
	"github.com/forensic-chain/forchain/internal/hashing"
)

// GenesisPreviousHash is the sentinel previous-hash of the genesis block.
const GenesisPreviousHash = "0"

// DefaultMaxNonceAttempts bounds the proof-of-work search. The search is
// exhaustive, so hitting the bound means the difficulty is misconfigured,
// not that mining "failed" probabilistically.
const DefaultMaxNonceAttempts = uint64(1) << 32

// ErrMiningExhausted is returned when no nonce below the attempt cap
// satisfies the difficulty predicate.
var ErrMiningExhausted = errors.New("nonce search exhausted; difficulty too high")

// Block is a sealed, hash-linked batch of transactions.
type Block struct {
	Index        int                 `json:"index"`
	Timestamp    time.Time           `json:"timestamp"`
	Transactions []model.Transaction `json:"transactions"`
	PreviousHash string              `json:"previous_hash"`
	Nonce        uint64              `json:"nonce"`
	Hash         string              `json:"hash"`
}

// blockContent is the canonical serialization input for a block hash.
// The stored Hash field itself is excluded.
type blockContent struct {
	Index        int                 `json:"index"`
	Timestamp    string              `json:"timestamp"`
	Transactions []model.Transaction `json:"transactions"`
	PreviousHash string              `json:"previous_hash"`
	Nonce        uint64              `json:"nonce"`
}

// ComputeHash recomputes the block's content hash from its stored fields,
// including the nonce. It does not modify the block.
func (b *Block) ComputeHash() (string, error) {
	content := blockContent{
		Index:        b.Index,
		Timestamp:    b.Timestamp.UTC().Format(time.RFC3339Nano),
		Transactions: b.Transactions,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
	}
	h, err := hashing.SumCanonical(content)
	if err != nil {
		return "", fmt.Errorf("hash block %d: %w", b.Index, err)
	}
	return h, nil
}

// difficultyTarget returns the hex prefix a hash must carry at the given
// difficulty.
func difficultyTarget(difficulty int) string {
	return strings.Repeat("0", difficulty)
}

// MeetsDifficulty reports whether hash satisfies the difficulty predicate.
func MeetsDifficulty(hash string, difficulty int) bool {
	return strings.HasPrefix(hash, difficultyTarget(difficulty))
}

// mine searches nonce values from 0 upward until the block's content hash
// satisfies the difficulty predicate, then stores the found nonce and hash.
// The search is deterministic: the same content and difficulty always land
// on the same nonce.
func (b *Block) mine(difficulty int, maxAttempts uint64) error {
	target := difficultyTarget(difficulty)
	for nonce := uint64(0); nonce < maxAttempts; nonce++ {
		b.Nonce = nonce
		h, err := b.ComputeHash()
		if err != nil {
			return err
		}
		if strings.HasPrefix(h, target) {
			b.Hash = h
			return nil
		}
	}
	return fmt.Errorf("block %d: %w", b.Index, ErrMiningExhausted)
}
