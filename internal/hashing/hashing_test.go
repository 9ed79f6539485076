package hashing_test

import (
	"strings"
	"testing"

	"github.com/forensic-chain/forchain/internal/hashing"
)

func TestSum_knownVector(t *testing.T) {
	// SHA-256("") is a fixed, well-known value.
	got := hashing.Sum(nil)
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("Sum(nil): got %q, want %q", got, want)
	}
}

func TestSum_deterministic(t *testing.T) {
	a := hashing.Sum([]byte("case-2024-001"))
	b := hashing.Sum([]byte("case-2024-001"))
	if a != b {
		t.Errorf("Sum not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("digest length: got %d, want 64", len(a))
	}
}

func TestSumReader_matchesSum(t *testing.T) {
	data := "disk image bytes"
	fromReader, err := hashing.SumReader(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if fromReader != hashing.Sum([]byte(data)) {
		t.Errorf("SumReader disagrees with Sum")
	}
}

func TestCanonicalJSON_keyOrderIndependent(t *testing.T) {
	a := map[string]any{"b": 1, "a": "x", "c": map[string]any{"z": true, "y": nil}}
	b := map[string]any{"c": map[string]any{"y": nil, "z": true}, "a": "x", "b": 1}

	ja, err := hashing.CanonicalJSON(a)
	if err != nil {
		t.Fatal(err)
	}
	jb, err := hashing.CanonicalJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ja) != string(jb) {
		t.Errorf("canonical encodings differ:\n%s\n%s", ja, jb)
	}
	if string(ja) != `{"a":"x","b":1,"c":{"y":null,"z":true}}` {
		t.Errorf("unexpected canonical form: %s", ja)
	}
}

func TestSumCanonical_structsAndMapsAgree(t *testing.T) {
	type payload struct {
		EvidenceID string `json:"evidence_id"`
		CaseID     string `json:"case_id"`
	}
	h1, err := hashing.SumCanonical(payload{EvidenceID: "e1", CaseID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := hashing.SumCanonical(map[string]string{"case_id": "c1", "evidence_id": "e1"})
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("struct and map hashes differ: %q vs %q", h1, h2)
	}
}

func TestDeriveEvidenceID(t *testing.T) {
	id := hashing.DeriveEvidenceID("deadbeef")
	if len(id) != hashing.EvidenceIDLength {
		t.Fatalf("id length: got %d, want %d", len(id), hashing.EvidenceIDLength)
	}
	if id != hashing.Sum([]byte("deadbeef"))[:16] {
		t.Errorf("id is not a prefix of the fingerprint hash")
	}
	if id == hashing.DeriveEvidenceID("deadbeee") {
		t.Errorf("distinct fingerprints produced the same id")
	}
}
