package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"crerag/internal/domain"
	"crerag/internal/service"
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Extract files and add them to the knowledge base",
		Long: `Extract text from each file, chunk it and add the result to the knowledge base.

Supported formats: .txt, .md, .csv, .json, .docx and .pdf (needs pdftotext).
Files that fail are reported and skipped; the rest are added together.`,
		Example: `  crerag ingest listings.csv brochure.pdf notes.md`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	files := make([]service.FileInput, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, service.FileInput{Name: filepath.Base(path), Data: data})
	}

	report, err := a.ingester.IngestFiles(cmd.Context(), files)
	if report == nil {
		return err
	}
	if outputJSON {
		if jerr := writeJSON(cmd.OutOrStdout(), report); jerr != nil {
			return jerr
		}
	} else {
		printReport(cmd, report)
	}
	if errors.Is(err, domain.ErrNoContent) {
		return errors.New("no valid text extracted from files")
	}
	return err
}

func printReport(cmd *cobra.Command, r *service.IngestReport) {
	cmd.Printf("Processed %d file(s), added %d chunk(s)\n", r.FilesProcessed, r.ChunksAdded)
	for _, d := range r.Documents {
		cmd.Printf("  #%d %s (%d chunks)\n", d.ID, d.SourceFilename, d.ChunkCount)
	}
	if len(r.Failed) > 0 {
		cmd.Printf("Failed:\n")
		for _, f := range r.Failed {
			cmd.Printf("  %s: %s\n", f.Filename, f.Error)
		}
	}
	if s := strings.TrimSpace(r.Summary); s != "" {
		cmd.Printf("\nSummary: %s\n", s)
	}
}
