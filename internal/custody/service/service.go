// Package service binds the participant and evidence registries to the block
// chain. Every state-mutating operation that succeeds appends exactly one
// transaction; evidence operations seal the pending pool into a mined block
// immediately, while participant registrations stay pending until the next
// evidence operation mines.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forensic-chain/forchain/internal/custody/model"
	"github.com/forensic-chain/forchain/internal/custody/registry"
	"github.com/forensic-chain/forchain/internal/hashing"
	"github.com/forensic-chain/forchain/internal/ledger"
)

// transactionIDLength is the number of hex characters in a transaction ID.
const transactionIDLength = 16

// ChainInfo is the chain overview returned by Info.
type ChainInfo struct {
	TotalBlocks         int    `json:"total_blocks"`
	LatestBlockHash     string `json:"latest_block_hash"`
	IsValid             bool   `json:"is_valid"`
	PendingTransactions int    `json:"pending_transactions"`
	Difficulty          int    `json:"difficulty"`
}

// IntegrityResult is returned by VerifyEvidenceIntegrity.
type IntegrityResult struct {
	EvidenceID string `json:"evidence_id"`
	Valid      bool   `json:"valid"`
	KnownHash  string `json:"known_hash"`
	GivenHash  string `json:"given_hash"`
}

// EventDispatchFunc is an optional callback invoked after each successful
// mutating operation, e.g. to fan custody events out to subscribers. It must
// not block.
type EventDispatchFunc func(ctx context.Context, eventType string, payload map[string]string)

// CustodyService is the single authoritative ledger instance. It exclusively
// owns the pending transaction pool and serialises all mutating operations;
// read-only queries go straight to the registries and chain, which guard
// their own state for concurrent readers.
type CustodyService struct {
	mu           sync.Mutex // serialises mutating operations end to end
	participants *registry.ParticipantRegistry
	evidence     *registry.EvidenceRegistry
	chain        *ledger.Chain
	pending      []model.Transaction
	onEvent      EventDispatchFunc
	logger       *zap.Logger
}

// New creates a CustodyService around the given chain.
func New(chain *ledger.Chain, logger *zap.Logger) *CustodyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustodyService{
		participants: registry.NewParticipantRegistry(),
		evidence:     registry.NewEvidenceRegistry(),
		chain:        chain,
		logger:       logger,
	}
}

// SetEventDispatch configures the event callback.
func (s *CustodyService) SetEventDispatch(fn EventDispatchFunc) {
	s.onEvent = fn
}

func (s *CustodyService) dispatch(ctx context.Context, eventType string, payload map[string]string) {
	if s.onEvent != nil {
		s.onEvent(ctx, eventType, payload)
	}
}

// ── Participants ─────────────────────────────────────────────────────────────

// RegisterParticipant creates a participant and records a
// participant_registered transaction in the pending pool.
func (s *CustodyService) RegisterParticipant(ctx context.Context, req *model.RegisterParticipantRequest) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.participants.Register(req.ParticipantID, req.Name, model.Role(req.Role), req.Organization)
	if err != nil {
		return nil, err
	}

	if _, err := s.appendPending(model.Transaction{
		Type:          model.TxParticipantRegistered,
		Timestamp:     p.CreatedAt,
		ParticipantID: p.ParticipantID,
		Name:          p.Name,
		Role:          string(p.Role),
	}); err != nil {
		return nil, err
	}

	s.logger.Info("participant registered",
		zap.String("participant_id", p.ParticipantID),
		zap.String("role", string(p.Role)),
		zap.String("organization", p.Organization),
	)
	s.dispatch(ctx, "participant.registered", map[string]string{
		"participant_id": p.ParticipantID,
		"role":           string(p.Role),
	})
	return p, nil
}

// GetParticipant returns the participant with the given identifier.
func (s *CustodyService) GetParticipant(_ context.Context, id string) (*model.Participant, error) {
	return s.participants.Get(id)
}

// ListParticipants returns all participants in registration order.
func (s *CustodyService) ListParticipants(_ context.Context) []*model.Participant {
	return s.participants.List()
}

// ParticipantCount returns the number of registered participants.
func (s *CustodyService) ParticipantCount() int {
	return s.participants.Count()
}

// ── Evidence ─────────────────────────────────────────────────────────────────

// CreateEvidence registers evidence, records an evidence_created transaction,
// and seals the pending pool into a new block. When the request carries no
// evidence ID, one is derived from the content fingerprint; a derived ID that
// collides with an existing record is an error, never an overwrite.
func (s *CustodyService) CreateEvidence(ctx context.Context, req *model.CreateEvidenceRequest) (*model.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creator, err := s.participants.Get(req.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("creator %q: %w", req.CreatorID, model.ErrUnknownParticipant)
	}
	if !creator.Role.CanCreateEvidence() {
		return nil, fmt.Errorf("role %q cannot create evidence: %w", creator.Role, model.ErrPermissionDenied)
	}
	if req.EvidenceID == "" {
		req.EvidenceID = hashing.DeriveEvidenceID(req.FileHash)
	}

	ev, err := s.evidence.Create(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.appendPending(model.Transaction{
		Type:        model.TxEvidenceCreated,
		Timestamp:   ev.CreatedAt,
		EvidenceID:  ev.EvidenceID,
		CreatorID:   ev.CreatorID,
		FileHash:    ev.FileHash,
		CaseID:      ev.CaseID,
		Description: ev.Description,
	}); err != nil {
		return nil, err
	}
	if err := s.mineLocked(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("evidence created",
		zap.String("evidence_id", ev.EvidenceID),
		zap.String("case_id", ev.CaseID),
		zap.String("creator_id", ev.CreatorID),
	)
	s.dispatch(ctx, "evidence.created", map[string]string{
		"evidence_id": ev.EvidenceID,
		"case_id":     ev.CaseID,
		"creator_id":  ev.CreatorID,
	})
	return ev, nil
}

// TransferEvidence hands custody from the current owner to another registered
// participant, records an evidence_transferred transaction, and mines.
func (s *CustodyService) TransferEvidence(ctx context.Context, req *model.TransferEvidenceRequest) (*model.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.evidence.Get(req.EvidenceID)
	if err != nil {
		return nil, err
	}
	if !ev.IsActive {
		return nil, fmt.Errorf("evidence %q: %w", req.EvidenceID, model.ErrInactive)
	}
	if ev.CurrentOwnerID != req.FromOwnerID {
		return nil, fmt.Errorf("evidence %q owned by %q, not %q: %w",
			req.EvidenceID, ev.CurrentOwnerID, req.FromOwnerID, model.ErrOwnerMismatch)
	}
	if !s.participants.Exists(req.FromOwnerID) {
		return nil, fmt.Errorf("from owner %q: %w", req.FromOwnerID, model.ErrUnknownParticipant)
	}
	if !s.participants.Exists(req.ToOwnerID) {
		return nil, fmt.Errorf("to owner %q: %w", req.ToOwnerID, model.ErrUnknownParticipant)
	}

	transfer, err := s.evidence.Transfer(req.EvidenceID, req.FromOwnerID, req.ToOwnerID, req.Reason)
	if err != nil {
		return nil, err
	}

	if _, err := s.appendPending(model.Transaction{
		Type:       model.TxEvidenceTransferred,
		Timestamp:  transfer.Timestamp,
		EvidenceID: req.EvidenceID,
		FromOwner:  transfer.FromOwner,
		ToOwner:    transfer.ToOwner,
		Reason:     transfer.Reason,
	}); err != nil {
		return nil, err
	}
	if err := s.mineLocked(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("evidence transferred",
		zap.String("evidence_id", req.EvidenceID),
		zap.String("from", transfer.FromOwner),
		zap.String("to", transfer.ToOwner),
	)
	s.dispatch(ctx, "evidence.transferred", map[string]string{
		"evidence_id": req.EvidenceID,
		"from_owner":  transfer.FromOwner,
		"to_owner":    transfer.ToOwner,
	})
	return transfer, nil
}

// DeactivateEvidence flags evidence inactive, records an
// evidence_deactivated transaction, and mines. Any registered participant
// may request deactivation; the requester is recorded for the audit trail.
func (s *CustodyService) DeactivateEvidence(ctx context.Context, evidenceID, requesterID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.evidence.Get(evidenceID)
	if err != nil {
		return err
	}
	if !ev.IsActive {
		return fmt.Errorf("evidence %q: %w", evidenceID, model.ErrInactive)
	}
	if !s.participants.Exists(requesterID) {
		return fmt.Errorf("requester %q: %w", requesterID, model.ErrUnknownParticipant)
	}

	if err := s.evidence.Deactivate(evidenceID); err != nil {
		return err
	}

	tx, err := s.appendPending(model.Transaction{
		Type:          model.TxEvidenceDeactivated,
		EvidenceID:    evidenceID,
		DeactivatedBy: requesterID,
		Reason:        reason,
	})
	if err != nil {
		return err
	}
	if err := s.mineLocked(ctx); err != nil {
		return err
	}

	s.logger.Info("evidence deactivated",
		zap.String("evidence_id", evidenceID),
		zap.String("requested_by", requesterID),
		zap.String("transaction_id", tx.TransactionID),
	)
	s.dispatch(ctx, "evidence.deactivated", map[string]string{
		"evidence_id":    evidenceID,
		"deactivated_by": requesterID,
	})
	return nil
}

// GetEvidence returns the current state of an evidence record.
func (s *CustodyService) GetEvidence(_ context.Context, evidenceID string) (*model.Evidence, error) {
	return s.evidence.Get(evidenceID)
}

// ListEvidence returns evidence records, optionally active only.
func (s *CustodyService) ListEvidence(_ context.Context, activeOnly bool) []*model.Evidence {
	return s.evidence.List(activeOnly)
}

// EvidenceByCase returns the active evidence registered under a case.
func (s *CustodyService) EvidenceByCase(_ context.Context, caseID string) []*model.Evidence {
	return s.evidence.ListByCase(caseID)
}

// EvidenceByOwner returns the active evidence currently held by a participant.
func (s *CustodyService) EvidenceByOwner(_ context.Context, ownerID string) []*model.Evidence {
	return s.evidence.ListByOwner(ownerID)
}

// EvidenceCount returns the number of evidence records, active or not.
func (s *CustodyService) EvidenceCount() int {
	return s.evidence.Count()
}

// VerifyEvidenceIntegrity compares the recorded content fingerprint against a
// caller-supplied one.
func (s *CustodyService) VerifyEvidenceIntegrity(_ context.Context, evidenceID, fileHash string) (*IntegrityResult, error) {
	ev, err := s.evidence.Get(evidenceID)
	if err != nil {
		return nil, err
	}
	return &IntegrityResult{
		EvidenceID: evidenceID,
		Valid:      ev.FileHash == fileHash,
		KnownHash:  ev.FileHash,
		GivenHash:  fileHash,
	}, nil
}

// ── Chain queries ────────────────────────────────────────────────────────────

// Info returns the chain overview.
func (s *CustodyService) Info(_ context.Context) ChainInfo {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()

	return ChainInfo{
		TotalBlocks:         s.chain.Len(),
		LatestBlockHash:     s.chain.Latest().Hash,
		IsValid:             s.chain.Verify() == nil,
		PendingTransactions: pending,
		Difficulty:          s.chain.Difficulty(),
	}
}

// Chain returns the full block sequence.
func (s *CustodyService) Chain(_ context.Context) []*ledger.Block {
	return s.chain.Blocks()
}

// Verify delegates to the chain validator. A failure is an integrity alarm,
// not a recoverable domain error.
func (s *CustodyService) Verify(_ context.Context) error {
	return s.chain.Verify()
}

// PendingCount returns the number of transactions awaiting a block.
func (s *CustodyService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// EvidenceHistory returns every sealed transaction referencing the evidence
// ID, in chain order, each annotated with the block that sealed it.
func (s *CustodyService) EvidenceHistory(_ context.Context, evidenceID string) []model.SealedTransaction {
	history := []model.SealedTransaction{}
	for _, block := range s.chain.Blocks() {
		for _, tx := range block.Transactions {
			if tx.EvidenceID == evidenceID {
				history = append(history, model.SealedTransaction{
					Transaction: tx,
					BlockIndex:  block.Index,
					BlockHash:   block.Hash,
				})
			}
		}
	}
	return history
}

// ── internals ────────────────────────────────────────────────────────────────

// appendPending stamps the transaction with a content-derived ID and adds it
// to the pending pool. A transaction is never pooled without an ID. Caller
// must hold s.mu.
func (s *CustodyService) appendPending(tx model.Transaction) (model.Transaction, error) {
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	h, err := hashing.SumCanonical(tx)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("derive transaction id: %w", err)
	}
	tx.TransactionID = h[:transactionIDLength]
	s.pending = append(s.pending, tx)
	return tx, nil
}

// mineLocked seals the pending pool into a new block. Caller must hold s.mu,
// so the snapshot cannot change while mining runs. An empty pool is a no-op.
func (s *CustodyService) mineLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	txs := make([]model.Transaction, len(s.pending))
	copy(txs, s.pending)

	block, err := s.chain.MineAndAppend(ctx, txs)
	if err != nil {
		return fmt.Errorf("mine pending transactions: %w", err)
	}
	s.pending = s.pending[:0]

	s.logger.Debug("pending pool sealed",
		zap.Int("block_index", block.Index),
		zap.Int("transactions", len(txs)),
	)
	return nil
}
