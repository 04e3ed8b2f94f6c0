package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/consent"
	"github.com/jonathan/pathway-advisor/internal/custody"
	"github.com/jonathan/pathway-advisor/internal/observability"
	"github.com/jonathan/pathway-advisor/internal/types"
	"github.com/spf13/cobra"
)

var (
	evidenceSessionID  string
	evidenceDocumentID string
	evidenceFile       string
	evidenceSourceType string
	evidenceConsent    string
	evidenceItemsFile  string
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Register and inspect evidence documents",
}

var evidenceRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Hash a document file and register it, optionally with extracted items",
	Long: `Register a document under a session. Only the content hash is stored; the file
itself stays where it is. --items points to a JSON array of items registered in one batch.`,
	RunE: runEvidenceRegister,
}

var evidenceItemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Print a document's items as its consent level allows",
	RunE:  runEvidenceItems,
}

func init() {
	evidenceCmd.PersistentFlags().StringVar(&evidenceSessionID, "session", "", "Owning session ID (required)")
	_ = evidenceCmd.MarkPersistentFlagRequired("session")

	evidenceRegisterCmd.Flags().StringVarP(&evidenceFile, "file", "f", "", "Document to hash (required)")
	evidenceRegisterCmd.Flags().StringVar(&evidenceSourceType, "source-type", string(types.SourceResume), "resume, transcript, portfolio, job_posting or other")
	evidenceRegisterCmd.Flags().StringVar(&evidenceConsent, "consent", "", "derived_only (default), excerpt_ok or raw_ok")
	evidenceRegisterCmd.Flags().StringVar(&evidenceItemsFile, "items", "", "JSON file with an array of extracted items")
	_ = evidenceRegisterCmd.MarkFlagRequired("file")

	evidenceItemsCmd.Flags().StringVar(&evidenceDocumentID, "document", "", "Document ID (required)")
	_ = evidenceItemsCmd.MarkFlagRequired("document")

	evidenceCmd.AddCommand(evidenceRegisterCmd, evidenceItemsCmd)
	rootCmd.AddCommand(evidenceCmd)
}

func runEvidenceRegister(cmd *cobra.Command, _ []string) error {
	sid, err := uuid.Parse(evidenceSessionID)
	if err != nil {
		return fmt.Errorf("invalid --session: %w", err)
	}

	var items []types.NewEvidenceItem
	if evidenceItemsFile != "" {
		data, err := os.ReadFile(evidenceItemsFile)
		if err != nil {
			return fmt.Errorf("failed to read items file: %w", err)
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("failed to parse items file: %w", err)
		}
	}

	f, err := os.Open(evidenceFile)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	hash, err := custody.HashContent(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	svc, store, err := openService(ctx, cfg, log.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	docID, err := svc.RegisterDocument(ctx, sid, types.NewEvidenceDocument{
		SourceType:   types.SourceType(evidenceSourceType),
		ContentHash:  hash,
		ConsentLevel: types.ConsentLevel(evidenceConsent),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "document_id: %s\n", docID)
	fmt.Fprintf(out, "content_hash: %s\n", hash)

	if len(items) > 0 {
		ids, err := svc.RegisterItemsForSession(ctx, sid, docID, items)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "items: %d\n", len(ids))
	}
	return nil
}

func runEvidenceItems(cmd *cobra.Command, _ []string) error {
	sid, err := uuid.Parse(evidenceSessionID)
	if err != nil {
		return fmt.Errorf("invalid --session: %w", err)
	}
	did, err := uuid.Parse(evidenceDocumentID)
	if err != nil {
		return fmt.Errorf("invalid --document: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	svc, store, err := openService(ctx, cfg, log.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := consent.LoadEngine(ctx, cfg.ConsentPolicyPath)
	if err != nil {
		return fmt.Errorf("failed to load consent policy: %w", err)
	}

	doc, err := svc.Document(ctx, sid, did)
	if err != nil {
		return err
	}
	items, err := svc.Items(ctx, sid, did)
	if err != nil {
		return err
	}
	surfaced, visible, err := engine.Surface(ctx, *doc, items)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "document: %s (%s, %s)\n", surfaced.ID, surfaced.SourceType, surfaced.ConsentLevel)
	if len(visible) == 0 {
		fmt.Fprintln(out, "No items")
		return nil
	}
	observability.NewPrinter(out).PrintEvidenceItems(visible)
	return nil
}
