// cmd/seed — populates a running custody server with realistic mock data
// for development: a set of participants, a few cases worth of evidence,
// and some custody transfers so the chain has history to browse.
//
// Seeding goes through the HTTP API so every record is mined into the
// chain exactly as production writes would be. Running twice against the
// same server fails on the duplicate IDs; restart the server (or point at
// a fresh database) to reseed.
//
// Usage:
//
//	go run ./cmd/seed
//	FORCHAIN_URL=http://localhost:8080 go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/forensic-chain/forchain/internal/hashing"
	"github.com/forensic-chain/forchain/pkg/client"
)

const defaultServer = "http://localhost:8080"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	serverURL := os.Getenv("FORCHAIN_URL")
	if serverURL == "" {
		serverURL = defaultServer
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c := client.New(serverURL, client.WithTimeout(30*time.Second))

	if _, err := c.ChainInfo(ctx); err != nil {
		return fmt.Errorf("reach server at %s: %w", serverURL, err)
	}
	fmt.Println("connected to", serverURL)

	if err := seedParticipants(ctx, c); err != nil {
		return fmt.Errorf("seed participants: %w", err)
	}
	if err := seedEvidence(ctx, c); err != nil {
		return fmt.Errorf("seed evidence: %w", err)
	}

	info, err := c.ChainInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nseed complete: %d blocks, valid=%t\n", info.TotalBlocks, info.IsValid)
	return nil
}

// ── Participants ─────────────────────────────────────────────────────────────

var participants = []client.RegisterParticipantRequest{
	{ParticipantID: "det-riggs", Name: "Martina Riggs", Role: "investigator", Organization: "Metro PD"},
	{ParticipantID: "det-osei", Name: "Kwame Osei", Role: "investigator", Organization: "Metro PD"},
	{ParticipantID: "lab-ito", Name: "Ren Ito", Role: "forensic_expert", Organization: "State Crime Lab"},
	{ParticipantID: "lab-novak", Name: "Petra Novak", Role: "forensic_expert", Organization: "State Crime Lab"},
	{ParticipantID: "da-quinn", Name: "Harriet Quinn", Role: "prosecutor", Organization: "District Attorney"},
	{ParticipantID: "judge-el", Name: "Samira El-Amin", Role: "judge", Organization: "Superior Court"},
	{ParticipantID: "sysop", Name: "Custody Admin", Role: "admin", Organization: "Evidence Bureau"},
}

func seedParticipants(ctx context.Context, c *client.Client) error {
	for _, p := range participants {
		if _, err := c.RegisterParticipant(ctx, p); err != nil {
			return fmt.Errorf("register %s: %w", p.ParticipantID, err)
		}
		fmt.Printf("  participant %-10s %s (%s)\n", p.ParticipantID, p.Name, p.Role)
	}
	return nil
}

// ── Evidence ─────────────────────────────────────────────────────────────────

type seedItem struct {
	id          string
	caseID      string
	creator     string
	description string
	location    string
	content     string // fake file content; hashed below
	transferTo  string
	reason      string
}

var items = []seedItem{
	{
		id:          "ev-laptop-77ax",
		caseID:      "case-0118",
		creator:     "det-riggs",
		description: "Seized laptop, serial 77AX, found at primary scene",
		location:    "vault://row4/shelf2",
		content:     "disk-image-77ax",
		transferTo:  "lab-ito",
		reason:      "disk imaging and artifact extraction",
	},
	{
		id:          "ev-phone-s21",
		caseID:      "case-0118",
		creator:     "det-riggs",
		description: "Android phone, lock screen intact",
		location:    "vault://row4/shelf3",
		content:     "ufed-dump-s21",
		transferTo:  "lab-novak",
		reason:      "logical extraction",
	},
	{
		id:          "ev-usb-16g",
		caseID:      "case-0231",
		creator:     "det-osei",
		description: "16GB USB stick recovered from vehicle",
		location:    "vault://row1/shelf7",
		content:     "usb-image-16g",
		transferTo:  "lab-ito",
		reason:      "malware triage",
	},
	{
		// No transfer: stays with the creator.
		id:          "ev-ledger-book",
		caseID:      "case-0231",
		creator:     "det-osei",
		description: "Handwritten ledger, 40 pages, photographed",
		location:    "vault://row1/shelf8",
		content:     "scan-bundle-ledger",
	},
}

func seedEvidence(ctx context.Context, c *client.Client) error {
	for _, it := range items {
		fileHash, err := c.HashContent(ctx, it.content)
		if err != nil {
			// Fall back to local hashing when the server utility is
			// unavailable; the digests are identical.
			fileHash = hashing.Sum([]byte(it.content))
		}

		ev, err := c.CreateEvidence(ctx, client.CreateEvidenceRequest{
			EvidenceID:   it.id,
			Description:  it.description,
			CreatorID:    it.creator,
			FileHash:     fileHash,
			FileLocation: it.location,
			CaseID:       it.caseID,
			Metadata:     map[string]string{"seeded": "true"},
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", it.id, err)
		}
		fmt.Printf("  evidence %-16s case %s owner %s\n", ev.EvidenceID, ev.CaseID, ev.CurrentOwnerID)

		if it.transferTo == "" {
			continue
		}
		if _, err := c.TransferEvidence(ctx, client.TransferEvidenceRequest{
			EvidenceID:  it.id,
			FromOwnerID: it.creator,
			ToOwnerID:   it.transferTo,
			Reason:      it.reason,
		}); err != nil {
			return fmt.Errorf("transfer %s: %w", it.id, err)
		}
		fmt.Printf("    -> transferred to %s (%s)\n", it.transferTo, it.reason)
	}
	return nil
}
