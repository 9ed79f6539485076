package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/forensic-chain/forchain/internal/custody/model"
	"github.com/forensic-chain/forchain/internal/ledger"
)

var ctx = context.Background()

func newChain(t *testing.T, difficulty int) *ledger.Chain {
	t.Helper()
	c, err := ledger.NewChain(ctx, ledger.Config{Difficulty: difficulty})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func sampleTx(evidenceID string) model.Transaction {
	return model.Transaction{
		TransactionID: "tx_" + evidenceID,
		Type:          model.TxEvidenceCreated,
		Timestamp:     time.Now().UTC(),
		EvidenceID:    evidenceID,
		CreatorID:     "p1",
		CaseID:        "case-1",
	}
}

func TestNewChain_genesis(t *testing.T) {
	c := newChain(t, 2)

	if c.Len() != 1 {
		t.Fatalf("expected 1 genesis block, got %d", c.Len())
	}
	genesis := c.Latest()
	if genesis.Index != 0 {
		t.Errorf("genesis index: got %d, want 0", genesis.Index)
	}
	if genesis.PreviousHash != ledger.GenesisPreviousHash {
		t.Errorf("genesis previous hash: got %q, want sentinel", genesis.PreviousHash)
	}
	if !strings.HasPrefix(genesis.Hash, "00") {
		t.Errorf("genesis hash %q does not meet difficulty 2", genesis.Hash)
	}
	if err := c.Verify(); err != nil {
		t.Errorf("Verify() on fresh chain: %v", err)
	}
}

func TestNewChain_rejectsNegativeDifficulty(t *testing.T) {
	if _, err := ledger.NewChain(ctx, ledger.Config{Difficulty: -1}); err == nil {
		t.Error("expected error for negative difficulty")
	}
}

func TestMineAndAppend_linksAndMeetsDifficulty(t *testing.T) {
	c := newChain(t, 2)

	b1, err := c.MineAndAppend(ctx, []model.Transaction{sampleTx("e1")})
	if err != nil {
		t.Fatal(err)
	}
	b2, err := c.MineAndAppend(ctx, []model.Transaction{sampleTx("e2")})
	if err != nil {
		t.Fatal(err)
	}

	blocks := c.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if b1.PreviousHash != blocks[0].Hash {
		t.Errorf("block 1 previous hash: got %q, want genesis hash %q", b1.PreviousHash, blocks[0].Hash)
	}
	if b2.PreviousHash != b1.Hash {
		t.Errorf("block 2 previous hash: got %q, want %q", b2.PreviousHash, b1.Hash)
	}
	for _, b := range blocks {
		if !strings.HasPrefix(b.Hash, "00") {
			t.Errorf("block %d hash %q does not meet difficulty 2", b.Index, b.Hash)
		}
	}
	if err := c.Verify(); err != nil {
		t.Errorf("Verify() after appends: %v", err)
	}
}

func TestMineAndAppend_deterministicHash(t *testing.T) {
	c := newChain(t, 1)
	b, err := c.MineAndAppend(ctx, []model.Transaction{sampleTx("e1")})
	if err != nil {
		t.Fatal(err)
	}
	recomputed, err := b.ComputeHash()
	if err != nil {
		t.Fatal(err)
	}
	if recomputed != b.Hash {
		t.Errorf("recomputed hash %q != stored hash %q", recomputed, b.Hash)
	}
}

func TestVerify_detectsTamperedPayload(t *testing.T) {
	c := newChain(t, 1)
	if _, err := c.MineAndAppend(ctx, []model.Transaction{sampleTx("e1")}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.MineAndAppend(ctx, []model.Transaction{sampleTx("e2")}); err != nil {
		t.Fatal(err)
	}

	// Rewrite a sealed transaction in place.
	c.Blocks()[1].Transactions[0].EvidenceID = "forged"

	err := c.Verify()
	if err == nil {
		t.Fatal("Verify() passed on tampered chain")
	}
	var verr *ledger.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Index != 1 {
		t.Errorf("failing index: got %d, want 1", verr.Index)
	}
}

func TestVerify_detectsForgedHash(t *testing.T) {
	c := newChain(t, 1)
	if _, err := c.MineAndAppend(ctx, []model.Transaction{sampleTx("e1")}); err != nil {
		t.Fatal(err)
	}

	// A recomputed-but-unmined hash must fail the difficulty check even if
	// the attacker also fixes up the stored hash.
	tampered := c.Blocks()[1]
	tampered.Transactions[0].Reason = "edited"
	h, err := tampered.ComputeHash()
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(h, "0") {
		t.Skip("edited content happens to satisfy difficulty; cannot assert predicate failure")
	}
	tampered.Hash = h

	err = c.Verify()
	if err == nil {
		t.Fatal("Verify() passed on forged chain")
	}
	var verr *ledger.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Index != 1 {
		t.Errorf("failing index: got %d, want 1", verr.Index)
	}
}

func TestVerify_detectsSplicedChain(t *testing.T) {
	c := newChain(t, 1)
	if _, err := c.MineAndAppend(ctx, []model.Transaction{sampleTx("e1")}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.MineAndAppend(ctx, []model.Transaction{sampleTx("e2")}); err != nil {
		t.Fatal(err)
	}

	c.Blocks()[2].PreviousHash = strings.Repeat("0", 64)

	var verr *ledger.ValidationError
	if err := c.Verify(); !errors.As(err, &verr) || verr.Index != 2 {
		t.Errorf("expected validation failure at index 2, got %v", err)
	}
}

func TestMine_exhaustionIsConfigError(t *testing.T) {
	_, err := ledger.NewChain(ctx, ledger.Config{Difficulty: 10, MaxNonceAttempts: 100})
	if !errors.Is(err, ledger.ErrMiningExhausted) {
		t.Errorf("expected ErrMiningExhausted, got %v", err)
	}
}

func TestNewChain_resumesFromStore(t *testing.T) {
	store := ledger.NewMemoryStore()

	first, err := ledger.NewChain(ctx, ledger.Config{Difficulty: 1, Store: store})
	if err != nil {
		t.Fatal(err)
	}
	mined, err := first.MineAndAppend(ctx, []model.Transaction{sampleTx("e1")})
	if err != nil {
		t.Fatal(err)
	}

	resumed, err := ledger.NewChain(ctx, ledger.Config{Difficulty: 1, Store: store})
	if err != nil {
		t.Fatal(err)
	}
	if resumed.Len() != 2 {
		t.Fatalf("resumed chain length: got %d, want 2", resumed.Len())
	}
	if resumed.Latest().Hash != mined.Hash {
		t.Errorf("resumed tip hash: got %q, want %q", resumed.Latest().Hash, mined.Hash)
	}
	if err := resumed.Verify(); err != nil {
		t.Errorf("Verify() on resumed chain: %v", err)
	}
}

// rowStore persists blocks the way an external database does: each block is
// flattened to encoded row fields on append and rebuilt from them on load,
// so nothing survives by pointer sharing.
type rowStore struct {
	rows []blockRow
}

type blockRow struct {
	idx    int
	ts     string
	txJSON []byte
	prev   string
	nonce  uint64
	hash   string
}

func (s *rowStore) Load(_ context.Context) ([]*ledger.Block, error) {
	var blocks []*ledger.Block
	for _, r := range s.rows {
		ts, err := time.Parse(time.RFC3339Nano, r.ts)
		if err != nil {
			return nil, err
		}
		b := &ledger.Block{
			Index:        r.idx,
			Timestamp:    ts,
			PreviousHash: r.prev,
			Nonce:        r.nonce,
			Hash:         r.hash,
		}
		if err := json.Unmarshal(r.txJSON, &b.Transactions); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (s *rowStore) AppendBlock(_ context.Context, b *ledger.Block) error {
	txJSON, err := json.Marshal(b.Transactions)
	if err != nil {
		return err
	}
	s.rows = append(s.rows, blockRow{
		idx:    b.Index,
		ts:     b.Timestamp.UTC().Format(time.RFC3339Nano),
		txJSON: txJSON,
		prev:   b.PreviousHash,
		nonce:  b.Nonce,
		hash:   b.Hash,
	})
	return nil
}

// Block and transaction timestamps carry nanoseconds, and those nanoseconds
// are part of the hash preimage. A store encoding that loses precision
// breaks every reload, so resume must survive a full serialization
// round-trip, not just a shared-pointer one.
func TestNewChain_resumesFromSerializedStore(t *testing.T) {
	store := &rowStore{}

	first, err := ledger.NewChain(ctx, ledger.Config{Difficulty: 1, Store: store})
	if err != nil {
		t.Fatal(err)
	}
	mined, err := first.MineAndAppend(ctx, []model.Transaction{sampleTx("e1")})
	if err != nil {
		t.Fatal(err)
	}

	resumed, err := ledger.NewChain(ctx, ledger.Config{Difficulty: 1, Store: store})
	if err != nil {
		t.Fatalf("resume from serialized store: %v", err)
	}
	if resumed.Len() != 2 {
		t.Fatalf("resumed chain length: got %d, want 2", resumed.Len())
	}
	if resumed.Latest().Hash != mined.Hash {
		t.Errorf("resumed tip hash: got %q, want %q", resumed.Latest().Hash, mined.Hash)
	}
	if err := resumed.Verify(); err != nil {
		t.Errorf("Verify() on resumed chain: %v", err)
	}
}

func TestNewChain_rejectsCorruptStore(t *testing.T) {
	store := ledger.NewMemoryStore()
	first, err := ledger.NewChain(ctx, ledger.Config{Difficulty: 1, Store: store})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.MineAndAppend(ctx, []model.Transaction{sampleTx("e1")}); err != nil {
		t.Fatal(err)
	}

	// Corrupt the persisted copy before resuming.
	blocks, _ := store.Load(ctx)
	blocks[1].Transactions[0].CaseID = "forged"

	if _, err := ledger.NewChain(ctx, ledger.Config{Difficulty: 1, Store: store}); err == nil {
		t.Error("expected resume to fail on corrupt store")
	}
}
