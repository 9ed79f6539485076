package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/forensic-chain/forchain/internal/custody/model"
)

// advisoryLockKey serialises concurrent AppendBlock calls from multiple
// connections. Arbitrary but must be stable.
const advisoryLockKey = int64(7_412_598_310)

// The timestamp column is TEXT, not TIMESTAMPTZ: the block hash preimage
// encodes the timestamp as RFC3339Nano, and TIMESTAMPTZ only keeps
// microseconds, so a round-trip through it would change every block's
// content hash and make a reloaded chain fail verification.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS custody_blocks (
    idx           INTEGER PRIMARY KEY,
    timestamp     TEXT NOT NULL,
    transactions  JSONB NOT NULL,
    previous_hash TEXT NOT NULL,
    nonce         BIGINT NOT NULL,
    hash          TEXT NOT NULL
)`

// PostgresStore persists mined blocks to PostgreSQL. It implements Store.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// EnsureSchema creates the custody_blocks table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure custody_blocks schema: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context) ([]*Block, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT idx, timestamp, transactions, previous_hash, nonce, hash
		 FROM custody_blocks ORDER BY idx`,
	)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*Block
	for rows.Next() {
		b := &Block{}
		var ts string
		var txJSON []byte
		var nonce int64
		if err := rows.Scan(&b.Index, &ts, &txJSON, &b.PreviousHash, &nonce, &b.Hash); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		b.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp of block %d: %w", b.Index, err)
		}
		b.Nonce = uint64(nonce)
		b.Transactions = []model.Transaction{}
		if err := json.Unmarshal(txJSON, &b.Transactions); err != nil {
			return nil, fmt.Errorf("decode transactions of block %d: %w", b.Index, err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// AppendBlock implements Store. The advisory lock keeps appends from
// separate connections ordered; the idx primary key rejects duplicates.
func (s *PostgresStore) AppendBlock(ctx context.Context, b *Block) error {
	txJSON, err := json.Marshal(b.Transactions)
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO custody_blocks (idx, timestamp, transactions, previous_hash, nonce, hash)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.Index, b.Timestamp.UTC().Format(time.RFC3339Nano), txJSON, b.PreviousHash, int64(b.Nonce), b.Hash,
	); err != nil {
		return fmt.Errorf("insert block %d: %w", b.Index, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit block tx: %w", err)
	}

	s.logger.Debug("block persisted",
		zap.Int("idx", b.Index),
		zap.String("hash", b.Hash),
	)
	return nil
}
