package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forensic-chain/forchain/pkg/client"
)

func envelopeHandler(t *testing.T, wantMethod, wantPath string, status int, success bool, data any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != wantMethod || r.URL.Path != wantPath {
			t.Errorf("got %s %s, want %s %s", r.Method, r.URL.Path, wantMethod, wantPath)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		payload := map[string]any{"success": success, "message": "test", "data": data}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Error(err)
		}
	}
}

func TestRegisterParticipant(t *testing.T) {
	srv := httptest.NewServer(envelopeHandler(t,
		http.MethodPost, "/api/v1/participants",
		http.StatusOK, true,
		map[string]any{"participant_id": "p1", "name": "Dana", "role": "investigator"},
	))
	defer srv.Close()

	c := client.New(srv.URL)
	p, err := c.RegisterParticipant(context.Background(), client.RegisterParticipantRequest{
		ParticipantID: "p1",
		Name:          "Dana",
		Role:          "investigator",
		Organization:  "Metro PD",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.ParticipantID != "p1" || p.Role != "investigator" {
		t.Errorf("unexpected participant: %+v", p)
	}
}

func TestGetEvidence_notFound(t *testing.T) {
	srv := httptest.NewServer(envelopeHandler(t,
		http.MethodGet, "/api/v1/evidence/missing",
		http.StatusNotFound, false, nil,
	))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.GetEvidence(context.Background(), "missing")
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestTransferEvidence_serverErrorMessage(t *testing.T) {
	srv := httptest.NewServer(envelopeHandler(t,
		http.MethodPost, "/api/v1/evidence/transfer",
		http.StatusBadRequest, false, nil,
	))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.TransferEvidence(context.Background(), client.TransferEvidenceRequest{
		EvidenceID:  "e1",
		FromOwnerID: "p1",
		ToOwnerID:   "p2",
		Reason:      "x",
	})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestVerifyChain(t *testing.T) {
	srv := httptest.NewServer(envelopeHandler(t,
		http.MethodGet, "/api/v1/blockchain/verify",
		http.StatusOK, false, map[string]any{"valid": false},
	))
	defer srv.Close()

	c := client.New(srv.URL)
	valid, err := c.VerifyChain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if valid {
		t.Error("corrupt chain reported as valid")
	}
}

func TestEvidenceHistory(t *testing.T) {
	srv := httptest.NewServer(envelopeHandler(t,
		http.MethodGet, "/api/v1/evidence/e1/history",
		http.StatusOK, true,
		[]map[string]any{
			{"type": "evidence_created", "block_index": 1, "block_hash": "00ab"},
			{"type": "evidence_transferred", "block_index": 2, "block_hash": "00cd"},
		},
	))
	defer srv.Close()

	c := client.New(srv.URL)
	history, err := c.EvidenceHistory(context.Background(), "e1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d entries, want 2", len(history))
	}
	if history[1].BlockIndex != 2 || history[1].Type != "evidence_transferred" {
		t.Errorf("unexpected entry: %+v", history[1])
	}
}

func TestHashContent(t *testing.T) {
	srv := httptest.NewServer(envelopeHandler(t,
		http.MethodPost, "/api/v1/hash",
		http.StatusOK, true, map[string]string{"hash": "deadbeef"},
	))
	defer srv.Close()

	c := client.New(srv.URL)
	h, err := c.HashContent(context.Background(), "payload")
	if err != nil {
		t.Fatal(err)
	}
	if h != "deadbeef" {
		t.Errorf("hash = %q", h)
	}
}
