package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

var documentJSON bool

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Inspect ingested documents",
	Long:    `List ingested document records or show the record of one document.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show <doc-id>",
	Short: "Show a document record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

func init() {
	documentCmd.PersistentFlags().BoolVar(&documentJSON, "json", false, "output as JSON")
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return notConfigured("document")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentJSON {
		if docs == nil {
			docs = []domain.DocumentRecord{}
		}
		return outputJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println(heading("Documents:"))
	cmd.Println()
	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s  %s\n", d.ID, d.Title)
		cmd.Printf("      %s  %s/%s  %d chunks\n", d.SourceKind, d.AccessRole, d.Department, d.ChunkCount)
	}
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return notConfigured("document")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document not found: %s", args[0])
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	if documentJSON {
		return outputJSON(cmd, doc)
	}

	cmd.Println(heading(doc.Title))
	cmd.Printf("  ID:         %s\n", doc.ID)
	cmd.Printf("  Source:     %s\n", doc.SourceKind)
	if doc.Origin != "" {
		cmd.Printf("  Origin:     %s\n", doc.Origin)
	}
	cmd.Printf("  Namespace:  %s\n", doc.Namespace)
	cmd.Printf("  Role:       %s\n", doc.AccessRole)
	cmd.Printf("  Department: %s\n", doc.Department)
	cmd.Printf("  Version:    %d\n", doc.Version)
	if doc.EffectiveDate != nil {
		cmd.Printf("  Effective:  %s\n", doc.EffectiveDate.Format("2006-01-02"))
	}
	cmd.Printf("  Chunks:     %d\n", doc.ChunkCount)
	cmd.Printf("  Created:    %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
