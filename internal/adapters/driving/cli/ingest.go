package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

var (
	ingestRole       string
	ingestDepartment string
	ingestNamespace  string
	ingestTitle      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add documents to the knowledge base",
	Long: `Extract text from files, web pages or stdin, split it into overlapping
chunks, embed them and write them to the vector index.

Every chunk is tagged with the document's access role and department.
Ingesting the same source again creates a new document; earlier chunks
are left in the index.`,
}

var ingestFileCmd = &cobra.Command{
	Use:   "file <path>...",
	Short: "Ingest local files (PDF, HTML, Markdown, text, DOCX, CSV)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngestFile,
}

var ingestURLCmd = &cobra.Command{
	Use:   "url <url>",
	Short: "Ingest a web page",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestURL,
}

var ingestTextCmd = &cobra.Command{
	Use:   "text",
	Short: "Ingest text read from stdin",
	Args:  cobra.NoArgs,
	RunE:  runIngestText,
}

func init() {
	for _, c := range []*cobra.Command{ingestFileCmd, ingestURLCmd, ingestTextCmd} {
		c.Flags().StringVar(&ingestRole, "role", "student", "access role: public, student or staff")
		c.Flags().StringVar(&ingestDepartment, "department", domain.DefaultDepartment, "owning department")
		c.Flags().StringVar(&ingestNamespace, "namespace", "", "vector namespace (default from settings)")
		ingestCmd.AddCommand(c)
	}
	ingestFileCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (single file only)")
	ingestTextCmd.Flags().StringVar(&ingestTitle, "title", "", "document title")
	rootCmd.AddCommand(ingestCmd)
}

func ingestOptions() (domain.IngestOptions, error) {
	role, err := domain.ParseAccessRole(ingestRole)
	if err != nil {
		return domain.IngestOptions{}, err
	}
	return domain.IngestOptions{
		Title:      ingestTitle,
		AccessRole: role,
		Department: ingestDepartment,
		Namespace:  ingestNamespace,
	}, nil
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}
	opts, err := ingestOptions()
	if err != nil {
		return err
	}
	if opts.Title != "" && len(args) > 1 {
		return errors.New("--title can only be used with a single file")
	}

	var failed int
	for _, path := range args {
		rec, err := ingestService.IngestFile(cmd.Context(), path, opts)
		if err != nil {
			failed++
			cmd.PrintErrf("%s %s: %v\n", failStyle.Render("FAILED"), path, err)
			continue
		}
		printRecord(cmd, rec)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func runIngestURL(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}
	opts, err := ingestOptions()
	if err != nil {
		return err
	}

	rec, err := ingestService.IngestURL(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printRecord(cmd, rec)
	return nil
}

func runIngestText(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}
	opts, err := ingestOptions()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: stdin is empty", domain.ErrEmptyContent)
	}

	rec, err := ingestService.IngestText(cmd.Context(), text, opts)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printRecord(cmd, rec)
	return nil
}

func printRecord(cmd *cobra.Command, rec *domain.DocumentRecord) {
	cmd.Printf("%s %s (%d chunks)\n", okStyle.Render("Ingested"), rec.Title, rec.ChunkCount)
	cmd.Printf("  ID: %s\n", rec.ID)
	cmd.Printf("  Role: %s  Department: %s  Namespace: %s\n", rec.AccessRole, rec.Department, rec.Namespace)
}
