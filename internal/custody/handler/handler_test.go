package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forensic-chain/forchain/internal/custody/handler"
	"github.com/forensic-chain/forchain/internal/custody/service"
	"github.com/forensic-chain/forchain/internal/ledger"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	chain, err := ledger.NewChain(context.Background(), ledger.Config{Difficulty: 1})
	if err != nil {
		t.Fatal(err)
	}
	svc := service.New(chain, zap.NewNop())

	router := gin.New()
	api := router.Group("/api")
	handler.NewParticipantHandler(svc, zap.NewNop()).Register(api)
	handler.NewEvidenceHandler(svc, zap.NewNop()).Register(api)
	handler.NewChainHandler(svc, zap.NewNop()).Register(api)
	return router
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope from %s %s: %v (body %s)", method, path, err, w.Body.String())
	}
	return w, env
}

func registerP1(t *testing.T, router *gin.Engine) {
	t.Helper()
	w, _ := do(t, router, http.MethodPost, "/api/participants", gin.H{
		"participant_id": "p1",
		"name":           "Dana",
		"role":           "investigator",
		"organization":   "Metro PD",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register p1: status %d, body %s", w.Code, w.Body.String())
	}
}

func createE1(t *testing.T, router *gin.Engine) {
	t.Helper()
	w, _ := do(t, router, http.MethodPost, "/api/evidence", gin.H{
		"evidence_id":   "e1",
		"description":   "seized phone",
		"creator_id":    "p1",
		"file_hash":     "abc123",
		"file_location": "vault://9",
		"case_id":       "case-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create e1: status %d, body %s", w.Code, w.Body.String())
	}
}

func TestRegisterParticipant_endToEnd(t *testing.T) {
	router := newRouter(t)

	registerP1(t, router)

	w, env := do(t, router, http.MethodGet, "/api/participants/p1", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("get p1: status %d, success %v", w.Code, env.Success)
	}
	var p struct {
		ParticipantID string `json:"participant_id"`
		Role          string `json:"role"`
	}
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatal(err)
	}
	if p.ParticipantID != "p1" || p.Role != "investigator" {
		t.Errorf("unexpected participant payload: %+v", p)
	}
}

func TestRegisterParticipant_duplicateIs409(t *testing.T) {
	router := newRouter(t)
	registerP1(t, router)

	w, env := do(t, router, http.MethodPost, "/api/participants", gin.H{
		"participant_id": "p1",
		"name":           "Clone",
		"role":           "judge",
		"organization":   "Court",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register: status %d, want 409", w.Code)
	}
	if env.Success {
		t.Error("duplicate register reported success")
	}
}

func TestRegisterParticipant_invalidRoleIs400(t *testing.T) {
	router := newRouter(t)
	w, _ := do(t, router, http.MethodPost, "/api/participants", gin.H{
		"participant_id": "p9",
		"name":           "Eve",
		"role":           "hacker",
		"organization":   "?",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid role: status %d, want 400", w.Code)
	}
}

func TestEvidenceLifecycle_endToEnd(t *testing.T) {
	router := newRouter(t)
	registerP1(t, router)
	w, _ := do(t, router, http.MethodPost, "/api/participants", gin.H{
		"participant_id": "p2",
		"name":           "Lee",
		"role":           "forensic_expert",
		"organization":   "State Lab",
	})
	if w.Code != http.StatusOK {
		t.Fatal("register p2 failed")
	}
	createE1(t, router)

	// Transfer custody.
	w, _ = do(t, router, http.MethodPost, "/api/evidence/transfer", gin.H{
		"evidence_id":   "e1",
		"from_owner_id": "p1",
		"to_owner_id":   "p2",
		"reason":        "lab analysis",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("transfer: status %d, body %s", w.Code, w.Body.String())
	}

	// Owner-mismatch transfer is a 400.
	w, _ = do(t, router, http.MethodPost, "/api/evidence/transfer", gin.H{
		"evidence_id":   "e1",
		"from_owner_id": "p1",
		"to_owner_id":   "p2",
		"reason":        "again",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("owner mismatch: status %d, want 400", w.Code)
	}

	// History shows creation + transfer.
	_, env := do(t, router, http.MethodGet, "/api/evidence/e1/history", nil)
	var history []struct {
		Type       string `json:"type"`
		BlockIndex int    `json:"block_index"`
		BlockHash  string `json:"block_hash"`
	}
	if err := json.Unmarshal(env.Data, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history: got %d entries, want 2", len(history))
	}
	if history[0].Type != "evidence_created" || history[1].Type != "evidence_transferred" {
		t.Errorf("history kinds: %s, %s", history[0].Type, history[1].Type)
	}

	// Deactivate, then confirm it is a 400 the second time.
	w, _ = do(t, router, http.MethodDelete, "/api/evidence/e1", gin.H{
		"requester_id": "p2",
		"reason":       "case closed",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: status %d", w.Code)
	}
	w, _ = do(t, router, http.MethodDelete, "/api/evidence/e1", gin.H{
		"requester_id": "p2",
		"reason":       "case closed",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("second deactivate: status %d, want 400", w.Code)
	}
}

func TestGetEvidence_unknownIs404(t *testing.T) {
	router := newRouter(t)
	w, _ := do(t, router, http.MethodGet, "/api/evidence/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown evidence: status %d, want 404", w.Code)
	}
}

func TestChainEndpoints(t *testing.T) {
	router := newRouter(t)
	registerP1(t, router)
	createE1(t, router)

	_, env := do(t, router, http.MethodGet, "/api/blockchain/info", nil)
	var info struct {
		TotalBlocks int  `json:"total_blocks"`
		IsValid     bool `json:"is_valid"`
	}
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatal(err)
	}
	if info.TotalBlocks != 2 || !info.IsValid {
		t.Errorf("info: %+v", info)
	}

	_, env = do(t, router, http.MethodGet, "/api/blockchain/verify", nil)
	if !env.Success {
		t.Error("verify reported invalid chain")
	}

	_, env = do(t, router, http.MethodGet, "/api/blockchain", nil)
	var blocks []struct {
		Index        int    `json:"index"`
		PreviousHash string `json:"previous_hash"`
		Hash         string `json:"hash"`
	}
	if err := json.Unmarshal(env.Data, &blocks); err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 {
		t.Fatalf("chain: got %d blocks, want 2", len(blocks))
	}
	if blocks[1].PreviousHash != blocks[0].Hash {
		t.Error("chain linkage broken in API payload")
	}
}

func TestHashEndpoint(t *testing.T) {
	router := newRouter(t)
	_, env := do(t, router, http.MethodPost, "/api/hash", gin.H{"content": ""})
	var data struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Hash != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("hash of empty string: %q", data.Hash)
	}
}

func TestRateLimiter_rejectsWithEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handler.RateLimiter(handler.RateLimitConfig{RPS: 1, Burst: 1}, zap.NewNop()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		return w
	}

	if w := serve(); w.Code != http.StatusOK {
		t.Fatalf("first request: status %d", w.Code)
	}
	w := serve()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After header: %q", w.Header().Get("Retry-After"))
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode rejection body: %v (body %s)", err, w.Body.String())
	}
	if env.Success || env.Message != "rate limit exceeded" {
		t.Errorf("rejection envelope: success=%v message=%q", env.Success, env.Message)
	}
}
