package registry_test

import (
	"errors"
	"testing"

	"github.com/forensic-chain/forchain/internal/custody/model"
	"github.com/forensic-chain/forchain/internal/custody/registry"
)

func TestParticipantRegister_duplicateAndRole(t *testing.T) {
	r := registry.NewParticipantRegistry()

	p, err := r.Register("p1", "Dana", model.RoleInvestigator, "Metro PD")
	if err != nil {
		t.Fatal(err)
	}
	if p.ParticipantID != "p1" || p.Role != model.RoleInvestigator {
		t.Errorf("unexpected participant: %+v", p)
	}
	if p.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if _, err := r.Register("p1", "Other", model.RoleJudge, "Court"); !errors.Is(err, model.ErrDuplicateID) {
		t.Errorf("duplicate id: got %v, want ErrDuplicateID", err)
	}
	if _, err := r.Register("p2", "Eve", model.Role("hacker"), "?"); !errors.Is(err, model.ErrInvalidRole) {
		t.Errorf("invalid role: got %v, want ErrInvalidRole", err)
	}
}

func TestParticipantList_insertionOrder(t *testing.T) {
	r := registry.NewParticipantRegistry()
	for _, id := range []string{"p3", "p1", "p2"} {
		if _, err := r.Register(id, "n-"+id, model.RoleAdmin, "org"); err != nil {
			t.Fatal(err)
		}
	}
	got := r.List()
	want := []string{"p3", "p1", "p2"}
	for i, p := range got {
		if p.ParticipantID != want[i] {
			t.Errorf("position %d: got %q, want %q", i, p.ParticipantID, want[i])
		}
	}
}

func TestParticipantGet_notFound(t *testing.T) {
	r := registry.NewParticipantRegistry()
	if _, err := r.Get("missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func createReq(id string) *model.CreateEvidenceRequest {
	return &model.CreateEvidenceRequest{
		EvidenceID:   id,
		Description:  "seized laptop",
		CreatorID:    "p1",
		FileHash:     "abc123",
		FileLocation: "vault://row-9",
		CaseID:       "case-1",
	}
}

func TestEvidenceCreate_initialState(t *testing.T) {
	r := registry.NewEvidenceRegistry()
	ev, err := r.Create(createReq("e1"))
	if err != nil {
		t.Fatal(err)
	}
	if ev.CurrentOwnerID != "p1" {
		t.Errorf("initial owner: got %q, want creator", ev.CurrentOwnerID)
	}
	if !ev.IsActive {
		t.Error("new evidence must be active")
	}
	if len(ev.TransferHistory) != 0 {
		t.Errorf("transfer history must start empty, got %d entries", len(ev.TransferHistory))
	}
	if ev.Metadata == nil {
		t.Error("metadata must never be nil")
	}

	if _, err := r.Create(createReq("e1")); !errors.Is(err, model.ErrDuplicateID) {
		t.Errorf("duplicate: got %v, want ErrDuplicateID", err)
	}
}

func TestEvidenceTransfer_ownerMismatchLeavesStateUnchanged(t *testing.T) {
	r := registry.NewEvidenceRegistry()
	if _, err := r.Create(createReq("e1")); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Transfer("e1", "p2", "p3", "relabel"); !errors.Is(err, model.ErrOwnerMismatch) {
		t.Fatalf("got %v, want ErrOwnerMismatch", err)
	}

	ev, err := r.Get("e1")
	if err != nil {
		t.Fatal(err)
	}
	if ev.CurrentOwnerID != "p1" {
		t.Errorf("owner changed on failed transfer: %q", ev.CurrentOwnerID)
	}
	if len(ev.TransferHistory) != 0 {
		t.Errorf("history grew on failed transfer: %d entries", len(ev.TransferHistory))
	}
}

func TestEvidenceTransfer_appendsHistory(t *testing.T) {
	r := registry.NewEvidenceRegistry()
	if _, err := r.Create(createReq("e1")); err != nil {
		t.Fatal(err)
	}

	tr, err := r.Transfer("e1", "p1", "p2", "lab analysis")
	if err != nil {
		t.Fatal(err)
	}
	if tr.FromOwner != "p1" || tr.ToOwner != "p2" || tr.Reason != "lab analysis" {
		t.Errorf("unexpected transfer: %+v", tr)
	}

	ev, _ := r.Get("e1")
	if ev.CurrentOwnerID != "p2" {
		t.Errorf("owner after transfer: got %q, want p2", ev.CurrentOwnerID)
	}
	if len(ev.TransferHistory) != 1 {
		t.Fatalf("history length: got %d, want 1", len(ev.TransferHistory))
	}
}

func TestEvidenceDeactivate_oneWay(t *testing.T) {
	r := registry.NewEvidenceRegistry()
	if _, err := r.Create(createReq("e1")); err != nil {
		t.Fatal(err)
	}

	if err := r.Deactivate("e1"); err != nil {
		t.Fatal(err)
	}
	if err := r.Deactivate("e1"); !errors.Is(err, model.ErrInactive) {
		t.Errorf("second deactivate: got %v, want ErrInactive", err)
	}
	if _, err := r.Transfer("e1", "p1", "p2", "x"); !errors.Is(err, model.ErrInactive) {
		t.Errorf("transfer of inactive: got %v, want ErrInactive", err)
	}
}

func TestEvidenceList_filters(t *testing.T) {
	r := registry.NewEvidenceRegistry()

	a := createReq("e1")
	b := createReq("e2")
	b.CaseID = "case-2"
	c := createReq("e3")
	for _, req := range []*model.CreateEvidenceRequest{a, b, c} {
		if _, err := r.Create(req); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Deactivate("e3"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Transfer("e1", "p1", "p2", "handoff"); err != nil {
		t.Fatal(err)
	}

	if got := len(r.List(true)); got != 2 {
		t.Errorf("active list: got %d, want 2", got)
	}
	if got := len(r.List(false)); got != 3 {
		t.Errorf("full list: got %d, want 3", got)
	}
	if got := len(r.ListByCase("case-2")); got != 1 {
		t.Errorf("case-2 list: got %d, want 1", got)
	}
	if got := len(r.ListByOwner("p2")); got != 1 {
		t.Errorf("p2 holdings: got %d, want 1", got)
	}
	if got := len(r.ListByOwner("p1")); got != 1 {
		t.Errorf("p1 holdings: got %d, want 1", got)
	}
}

func TestEvidenceGet_returnsCopy(t *testing.T) {
	r := registry.NewEvidenceRegistry()
	if _, err := r.Create(createReq("e1")); err != nil {
		t.Fatal(err)
	}

	ev, _ := r.Get("e1")
	ev.CurrentOwnerID = "mallory"
	ev.Metadata["injected"] = "true"

	fresh, _ := r.Get("e1")
	if fresh.CurrentOwnerID != "p1" {
		t.Error("registry state mutated through a returned record")
	}
	if _, ok := fresh.Metadata["injected"]; ok {
		t.Error("registry metadata mutated through a returned record")
	}
}
