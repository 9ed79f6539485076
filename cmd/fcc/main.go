package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forensic-chain/forchain/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fcc",
	Short: "Forensic-Chain custody CLI",
	Long: `fcc is the command-line interface for a Forensic-Chain custody server.

It registers participants, records and transfers evidence, and inspects
the proof-of-work chain that seals every custody event.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.fcc")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.fcc/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "custody server URL (default http://localhost:8080)")

	rootCmd.AddCommand(participantCmd)
	rootCmd.AddCommand(evidenceCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithTimeout(30*time.Second))
}

func cliCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── participant ──────────────────────────────────────────────────────────────

var participantCmd = &cobra.Command{
	Use:   "participant",
	Short: "Manage chain-of-custody participants",
}

var (
	participantName string
	participantRole string
	participantOrg  string
)

var participantRegisterCmd = &cobra.Command{
	Use:   "register <participant-id>",
	Short: "Register a new participant",
	Long: `Register a new participant with the custody server.

The registration is queued as a pending ledger transaction and is sealed
into the chain with the next mined block:

  fcc participant register det-riggs --name "M. Riggs" --role investigator --org "Metro PD"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		p, err := newClient().RegisterParticipant(ctx, client.RegisterParticipantRequest{
			ParticipantID: args[0],
			Name:          participantName,
			Role:          participantRole,
			Organization:  participantOrg,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Registered %s (%s, %s)\n", p.ParticipantID, p.Role, p.Organization)
		fmt.Println("Pending until the next block is mined.")
		return nil
	},
}

var participantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered participants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		list, err := newClient().ListParticipants(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tROLE\tORGANIZATION\tREGISTERED")
		for _, p := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.ParticipantID, p.Name, p.Role, p.Organization,
				p.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var participantShowCmd = &cobra.Command{
	Use:   "show <participant-id>",
	Short: "Show one participant and the evidence they hold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		c := newClient()
		p, err := c.GetParticipant(ctx, args[0])
		if err != nil {
			return err
		}
		held, err := c.ParticipantEvidence(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:           %s\n", p.ParticipantID)
		fmt.Printf("Name:         %s\n", p.Name)
		fmt.Printf("Role:         %s\n", p.Role)
		fmt.Printf("Organization: %s\n", p.Organization)
		fmt.Printf("Registered:   %s\n", p.CreatedAt.Format(time.RFC3339))
		fmt.Printf("Holding:      %d active evidence item(s)\n", len(held))
		for _, ev := range held {
			fmt.Printf("  - %s (case %s): %s\n", ev.EvidenceID, ev.CaseID, ev.Description)
		}
		return nil
	},
}

func init() {
	participantRegisterCmd.Flags().StringVar(&participantName, "name", "", "Participant full name")
	participantRegisterCmd.Flags().StringVar(&participantRole, "role", "", "Role: investigator, forensic_expert, prosecutor, judge, or admin")
	participantRegisterCmd.Flags().StringVar(&participantOrg, "org", "", "Organization")
	_ = participantRegisterCmd.MarkFlagRequired("name")
	_ = participantRegisterCmd.MarkFlagRequired("role")
	_ = participantRegisterCmd.MarkFlagRequired("org")

	participantCmd.AddCommand(participantRegisterCmd)
	participantCmd.AddCommand(participantListCmd)
	participantCmd.AddCommand(participantShowCmd)
}

// ── evidence ─────────────────────────────────────────────────────────────────

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Record, transfer, and inspect evidence",
}

var (
	evidenceDescription string
	evidenceCreator     string
	evidenceFileHash    string
	evidenceLocation    string
	evidenceCase        string
	evidenceID          string
	includeInactive     bool
)

var evidenceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new evidence item",
	Long: `Record a new evidence item and mine a block sealing it.

The file hash is the SHA-256 hex digest of the evidence file. When --id is
omitted the server derives a stable ID from the hash:

  fcc evidence create --case case-0118 --creator det-riggs \
      --hash 9f86d08... --location "vault://row4/shelf2" \
      --description "Seized laptop, serial 77AX"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		ev, err := newClient().CreateEvidence(ctx, client.CreateEvidenceRequest{
			EvidenceID:   evidenceID,
			Description:  evidenceDescription,
			CreatorID:    evidenceCreator,
			FileHash:     evidenceFileHash,
			FileLocation: evidenceLocation,
			CaseID:       evidenceCase,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Recorded evidence %s\n", ev.EvidenceID)
		fmt.Printf("  Case:  %s\n", ev.CaseID)
		fmt.Printf("  Owner: %s\n", ev.CurrentOwnerID)
		fmt.Printf("  Hash:  %s\n", ev.FileHash)
		return nil
	},
}

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evidence records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		list, err := newClient().ListEvidence(ctx, !includeInactive)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCASE\tOWNER\tACTIVE\tDESCRIPTION")
		for _, ev := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
				ev.EvidenceID, ev.CaseID, ev.CurrentOwnerID, ev.IsActive, ev.Description)
		}
		return w.Flush()
	},
}

var evidenceShowCmd = &cobra.Command{
	Use:   "show <evidence-id>",
	Short: "Show one evidence record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		ev, err := newClient().GetEvidence(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(ev)
	},
}

var (
	transferFrom   string
	transferTo     string
	transferReason string
)

var evidenceTransferCmd = &cobra.Command{
	Use:   "transfer <evidence-id>",
	Short: "Hand custody of evidence to a new owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		tr, err := newClient().TransferEvidence(ctx, client.TransferEvidenceRequest{
			EvidenceID:  args[0],
			FromOwnerID: transferFrom,
			ToOwnerID:   transferTo,
			Reason:      transferReason,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Transferred %s: %s -> %s (%s)\n",
			args[0], tr.FromOwner, tr.ToOwner, tr.Reason)
		return nil
	},
}

var (
	deactivateRequester string
	deactivateReason    string
)

var evidenceDeactivateCmd = &cobra.Command{
	Use:   "deactivate <evidence-id>",
	Short: "Flag an evidence record inactive",
	Long: `Flag an evidence record inactive, e.g. when a case closes.

Deactivation is one-way: the record and its full history stay readable,
but no further transfers are accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		if err := newClient().DeactivateEvidence(ctx, args[0], deactivateRequester, deactivateReason); err != nil {
			return err
		}
		fmt.Printf("Deactivated %s\n", args[0])
		return nil
	},
}

var evidenceHistoryCmd = &cobra.Command{
	Use:   "history <evidence-id>",
	Short: "Show the sealed custody history of an evidence record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		history, err := newClient().EvidenceHistory(ctx, args[0])
		if err != nil {
			return err
		}
		if len(history) == 0 {
			return errors.New("no sealed transactions reference this evidence")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BLOCK\tTYPE\tWHEN\tDETAIL")
		for _, h := range history {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				h.BlockIndex, h.Type, h.Timestamp.Format(time.RFC3339), historyDetail(h))
		}
		return w.Flush()
	},
}

var verifyHash string

var evidenceVerifyCmd = &cobra.Command{
	Use:   "verify <evidence-id>",
	Short: "Check a file fingerprint against the recorded original",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		res, err := newClient().VerifyEvidenceIntegrity(ctx, args[0], verifyHash)
		if err != nil {
			return err
		}
		if !res.Valid {
			fmt.Printf("MISMATCH: recorded %s, given %s\n", res.KnownHash, res.GivenHash)
			os.Exit(1)
		}
		fmt.Println("OK: fingerprint matches the recorded original")
		return nil
	},
}

var evidenceCaseCmd = &cobra.Command{
	Use:   "case <case-id>",
	Short: "List the active evidence belonging to a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		list, err := newClient().CaseEvidence(ctx, args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tOWNER\tDESCRIPTION")
		for _, ev := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ev.EvidenceID, ev.CurrentOwnerID, ev.Description)
		}
		return w.Flush()
	},
}

func historyDetail(h client.HistoryEntry) string {
	switch h.Type {
	case "evidence_created":
		return "created by " + h.CreatorID
	case "evidence_transferred":
		return fmt.Sprintf("%s -> %s (%s)", h.FromOwner, h.ToOwner, h.Reason)
	case "evidence_deactivated":
		return "deactivated by " + h.DeactivatedBy
	default:
		return h.Type
	}
}

func init() {
	evidenceCreateCmd.Flags().StringVar(&evidenceID, "id", "", "Evidence ID (derived from --hash when empty)")
	evidenceCreateCmd.Flags().StringVar(&evidenceDescription, "description", "", "Evidence description")
	evidenceCreateCmd.Flags().StringVar(&evidenceCreator, "creator", "", "Creating participant ID")
	evidenceCreateCmd.Flags().StringVar(&evidenceFileHash, "hash", "", "SHA-256 hex digest of the evidence file")
	evidenceCreateCmd.Flags().StringVar(&evidenceLocation, "location", "", "Physical or logical storage location")
	evidenceCreateCmd.Flags().StringVar(&evidenceCase, "case", "", "Case ID")
	_ = evidenceCreateCmd.MarkFlagRequired("description")
	_ = evidenceCreateCmd.MarkFlagRequired("creator")
	_ = evidenceCreateCmd.MarkFlagRequired("hash")
	_ = evidenceCreateCmd.MarkFlagRequired("location")
	_ = evidenceCreateCmd.MarkFlagRequired("case")

	evidenceListCmd.Flags().BoolVar(&includeInactive, "all", false, "Include deactivated evidence")

	evidenceTransferCmd.Flags().StringVar(&transferFrom, "from", "", "Current owner participant ID")
	evidenceTransferCmd.Flags().StringVar(&transferTo, "to", "", "New owner participant ID")
	evidenceTransferCmd.Flags().StringVar(&transferReason, "reason", "", "Reason for the transfer")
	_ = evidenceTransferCmd.MarkFlagRequired("from")
	_ = evidenceTransferCmd.MarkFlagRequired("to")
	_ = evidenceTransferCmd.MarkFlagRequired("reason")

	evidenceDeactivateCmd.Flags().StringVar(&deactivateRequester, "requester", "", "Requesting participant ID")
	evidenceDeactivateCmd.Flags().StringVar(&deactivateReason, "reason", "", "Reason for deactivation")
	_ = evidenceDeactivateCmd.MarkFlagRequired("requester")

	evidenceVerifyCmd.Flags().StringVar(&verifyHash, "hash", "", "SHA-256 hex digest to compare")
	_ = evidenceVerifyCmd.MarkFlagRequired("hash")

	evidenceCmd.AddCommand(evidenceCreateCmd)
	evidenceCmd.AddCommand(evidenceListCmd)
	evidenceCmd.AddCommand(evidenceShowCmd)
	evidenceCmd.AddCommand(evidenceTransferCmd)
	evidenceCmd.AddCommand(evidenceDeactivateCmd)
	evidenceCmd.AddCommand(evidenceHistoryCmd)
	evidenceCmd.AddCommand(evidenceVerifyCmd)
	evidenceCmd.AddCommand(evidenceCaseCmd)
}

// ── chain ────────────────────────────────────────────────────────────────────

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Inspect and verify the custody chain",
}

var chainInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show chain summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		info, err := newClient().ChainInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Blocks:      %d\n", info.TotalBlocks)
		fmt.Printf("Latest hash: %s\n", info.LatestBlockHash)
		fmt.Printf("Difficulty:  %d\n", info.Difficulty)
		fmt.Printf("Pending:     %d transaction(s)\n", info.PendingTransactions)
		fmt.Printf("Valid:       %t\n", info.IsValid)
		return nil
	},
}

var chainVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-verify every block of the chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		valid, err := newClient().VerifyChain(ctx)
		if err != nil {
			return err
		}
		if !valid {
			fmt.Println("CORRUPT: chain verification failed")
			os.Exit(1)
		}
		fmt.Println("OK: chain verified")
		return nil
	},
}

var chainShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Dump the full chain as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cliCtx()
		defer cancel()

		blocks, err := newClient().Blocks(ctx)
		if err != nil {
			return err
		}
		return printJSON(blocks)
	},
}

func init() {
	chainCmd.AddCommand(chainInfoCmd)
	chainCmd.AddCommand(chainVerifyCmd)
	chainCmd.AddCommand(chainShowCmd)
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fcc CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fcc %s (Forensic-Chain)\n", version)
	},
}
