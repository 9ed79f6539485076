// Package client provides the Forensic-Chain Go SDK for talking to a
// custodyd server: registering participants, recording and transferring
// evidence, and inspecting the underlying block chain.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned when the server reports HTTP 404 for the
// requested participant or evidence record.
var ErrNotFound = errors.New("not found")

// Participant is a registered chain-of-custody actor.
type Participant struct {
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	Organization  string    `json:"organization"`
	CreatedAt     time.Time `json:"created_at"`
}

// Transfer is one custody hand-off in an evidence record's history.
type Transfer struct {
	FromOwner string    `json:"from_owner"`
	ToOwner   string    `json:"to_owner"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Evidence is a tracked evidence record as returned by the server.
type Evidence struct {
	EvidenceID      string            `json:"evidence_id"`
	Description     string            `json:"description"`
	CreatorID       string            `json:"creator_id"`
	CurrentOwnerID  string            `json:"current_owner_id"`
	FileHash        string            `json:"file_hash"`
	FileLocation    string            `json:"file_location"`
	CaseID          string            `json:"case_id"`
	Metadata        map[string]string `json:"metadata"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	TransferHistory []Transfer        `json:"transfer_history"`
}

// RegisterParticipantRequest is the payload for RegisterParticipant.
type RegisterParticipantRequest struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Organization  string `json:"organization"`
}

// CreateEvidenceRequest is the payload for CreateEvidence. EvidenceID may
// be empty, in which case the server derives one from FileHash.
type CreateEvidenceRequest struct {
	EvidenceID   string            `json:"evidence_id,omitempty"`
	Description  string            `json:"description"`
	CreatorID    string            `json:"creator_id"`
	FileHash     string            `json:"file_hash"`
	FileLocation string            `json:"file_location"`
	CaseID       string            `json:"case_id"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// TransferEvidenceRequest is the payload for TransferEvidence.
type TransferEvidenceRequest struct {
	EvidenceID  string `json:"evidence_id"`
	FromOwnerID string `json:"from_owner_id"`
	ToOwnerID   string `json:"to_owner_id"`
	Reason      string `json:"reason"`
}

// HistoryEntry is one sealed ledger transaction touching an evidence record.
type HistoryEntry struct {
	TransactionID string    `json:"transaction_id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	EvidenceID    string    `json:"evidence_id,omitempty"`
	CreatorID     string    `json:"creator_id,omitempty"`
	FromOwner     string    `json:"from_owner,omitempty"`
	ToOwner       string    `json:"to_owner,omitempty"`
	DeactivatedBy string    `json:"deactivated_by,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	BlockIndex    int       `json:"block_index"`
	BlockHash     string    `json:"block_hash"`
}

// Block is one sealed block of the custody chain.
type Block struct {
	Index        int               `json:"index"`
	Timestamp    time.Time         `json:"timestamp"`
	Transactions []json.RawMessage `json:"transactions"`
	PreviousHash string            `json:"previous_hash"`
	Nonce        uint64            `json:"nonce"`
	Hash         string            `json:"hash"`
}

// ChainInfo summarizes the server's chain state.
type ChainInfo struct {
	TotalBlocks         int    `json:"total_blocks"`
	LatestBlockHash     string `json:"latest_block_hash"`
	IsValid             bool   `json:"is_valid"`
	PendingTransactions int    `json:"pending_transactions"`
	Difficulty          int    `json:"difficulty"`
}

// IntegrityResult reports a fingerprint comparison for an evidence record.
type IntegrityResult struct {
	EvidenceID string `json:"evidence_id"`
	Valid      bool   `json:"valid"`
	KnownHash  string `json:"known_hash"`
	GivenHash  string `json:"given_hash"`
}

// Client is the Forensic-Chain SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client connected to baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RegisterParticipant registers a new actor. The registration is queued as a
// pending ledger transaction and sealed with the next mined block.
func (c *Client) RegisterParticipant(ctx context.Context, reg RegisterParticipantRequest) (*Participant, error) {
	var p Participant
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/participants", reg, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParticipant fetches a single participant by ID.
func (c *Client) GetParticipant(ctx context.Context, id string) (*Participant, error) {
	var p Participant
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/participants/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns all registered participants in registration order.
func (c *Client) ListParticipants(ctx context.Context) ([]Participant, error) {
	var list []Participant
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/participants", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateEvidence records a new evidence item and mines a block sealing it
// together with any pending registrations.
func (c *Client) CreateEvidence(ctx context.Context, req CreateEvidenceRequest) (*Evidence, error) {
	var ev Evidence
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/evidence", req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetEvidence fetches a single evidence record by ID.
func (c *Client) GetEvidence(ctx context.Context, id string) (*Evidence, error) {
	var ev Evidence
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/evidence/"+url.PathEscape(id), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListEvidence returns evidence records. When activeOnly is true (the
// server default) deactivated records are omitted.
func (c *Client) ListEvidence(ctx context.Context, activeOnly bool) ([]Evidence, error) {
	path := fmt.Sprintf("/api/v1/evidence?active_only=%t", activeOnly)
	var list []Evidence
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// TransferEvidence hands custody of an evidence record to a new owner and
// returns the recorded hand-off.
func (c *Client) TransferEvidence(ctx context.Context, req TransferEvidenceRequest) (*Transfer, error) {
	var tr Transfer
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/evidence/transfer", req, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// DeactivateEvidence flags an evidence record inactive. Deactivation is
// one-way; the record and its history remain readable.
func (c *Client) DeactivateEvidence(ctx context.Context, evidenceID, requesterID, reason string) error {
	body := map[string]string{"requester_id": requesterID, "reason": reason}
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/evidence/"+url.PathEscape(evidenceID), body, nil)
}

// EvidenceHistory returns every sealed transaction referencing the given
// evidence record, oldest first, with the block that sealed each one.
func (c *Client) EvidenceHistory(ctx context.Context, evidenceID string) ([]HistoryEntry, error) {
	var history []HistoryEntry
	path := "/api/v1/evidence/" + url.PathEscape(evidenceID) + "/history"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// VerifyEvidenceIntegrity compares fileHash against the fingerprint recorded
// for the evidence record at creation time.
func (c *Client) VerifyEvidenceIntegrity(ctx context.Context, evidenceID, fileHash string) (*IntegrityResult, error) {
	var res IntegrityResult
	path := "/api/v1/evidence/" + url.PathEscape(evidenceID) + "/verify"
	body := map[string]string{"file_hash": fileHash}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CaseEvidence returns the active evidence records belonging to a case.
func (c *Client) CaseEvidence(ctx context.Context, caseID string) ([]Evidence, error) {
	var list []Evidence
	path := "/api/v1/cases/" + url.PathEscape(caseID) + "/evidence"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ParticipantEvidence returns the active evidence currently held by a
// participant.
func (c *Client) ParticipantEvidence(ctx context.Context, participantID string) ([]Evidence, error) {
	var list []Evidence
	path := "/api/v1/participants/" + url.PathEscape(participantID) + "/evidence"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ChainInfo returns a summary of the server's chain state.
func (c *Client) ChainInfo(ctx context.Context) (*ChainInfo, error) {
	var info ChainInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/blockchain/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Blocks returns the full chain, genesis first.
func (c *Client) Blocks(ctx context.Context) ([]Block, error) {
	var blocks []Block
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/blockchain", nil, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// VerifyChain asks the server to re-verify its chain. It returns (true, nil)
// for an intact chain and (false, nil) when the server reports corruption;
// the error is reserved for transport failures.
func (c *Client) VerifyChain(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/blockchain/verify", nil)
	if err != nil {
		return false, err
	}
	env, _, err := c.send(req)
	if err != nil {
		return false, err
	}
	return env.Success, nil
}

// HashContent asks the server for the SHA-256 hex digest of content. Useful
// for computing fingerprints with the exact algorithm the ledger uses.
func (c *Client) HashContent(ctx context.Context, content string) (string, error) {
	var data struct {
		Hash string `json:"hash"`
	}
	body := map[string]string{"content": content}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/hash", body, &data); err != nil {
		return "", err
	}
	return data.Hash, nil
}

// envelope mirrors the server's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) send(req *http.Request) (*envelope, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	return &env, resp.StatusCode, nil
}

// doJSON executes a request, unwraps the response envelope, and decodes the
// data payload into out (which may be nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	env, status, err := c.send(req)
	if err != nil {
		return err
	}

	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, env.Message)
	}
	if status >= 300 || !env.Success {
		return fmt.Errorf("server error %d: %s", status, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data payload: %w", err)
		}
	}
	return nil
}
