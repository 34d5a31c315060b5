package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	addSource string
	addStdin  bool
)

// NewAddCmd creates the add command.
func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [chunk]...",
		Short: "Add raw text chunks",
		Long: `Add each argument as one chunk. With --stdin every non-empty input line is a chunk.

When --source is given the chunks are recorded as one document that can
later be listed and deleted.`,
		Example: `  crerag add --source notes.txt "Suite 300 offers 20,000 SF at $87 per year."
  cat chunks.txt | crerag add --stdin`,
		RunE: runAdd,
	}
	cmd.Flags().StringVarP(&addSource, "source", "s", "", "Source filename to record the chunks under")
	cmd.Flags().BoolVar(&addStdin, "stdin", false, "Read chunks from stdin, one per line")
	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	chunks := append([]string{}, args...)
	if addStdin {
		sc := bufio.NewScanner(cmd.InOrStdin())
		sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				chunks = append(chunks, line)
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}
	if len(chunks) == 0 {
		return fmt.Errorf("nothing to add: pass chunks as arguments or use --stdin")
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	md, err := a.kb.Add(cmd.Context(), chunks, addSource, size)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"added": len(chunks), "document": md})
	}
	if md != nil {
		cmd.Printf("Added %d chunk(s) as document #%d (%s)\n", len(chunks), md.ID, md.SourceFilename)
	} else {
		cmd.Printf("Added %d chunk(s)\n", len(chunks))
	}
	return nil
}
