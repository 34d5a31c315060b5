package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var docsClearYes bool

// NewDocsCmd creates the docs command group.
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage stored documents",
		Long:  `List, delete or clear the documents recorded in the knowledge base.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Args:  cobra.NoArgs,
		RunE:  runDocsList,
	}
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocsDelete,
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every chunk and document",
		Args:  cobra.NoArgs,
		RunE:  runDocsClear,
	}
	clearCmd.Flags().BoolVarP(&docsClearYes, "yes", "y", false, "Confirm clearing the knowledge base")

	cmd.AddCommand(list, del, clearCmd)
	return cmd
}

func runDocsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	docs := a.kb.ListMetadata()
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"documents": docs})
	}
	if len(docs) == 0 {
		cmd.Println("No documents.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tCHUNKS\tRANGE\tBYTES\tINGESTED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t[%d, %d)\t%d\t%s\n",
			d.ID, d.SourceFilename, d.ChunkCount, d.ChunkStartIndex, d.ChunkEndIndex, d.ByteSize,
			d.IngestedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("document id must be an integer, got %q", args[0])
	}
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.kb.Delete(cmd.Context(), id); err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	cmd.Printf("Document %d deleted\n", id)
	return nil
}

func runDocsClear(cmd *cobra.Command, args []string) error {
	if !docsClearYes {
		return fmt.Errorf("refusing to clear without --yes")
	}
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.kb.Clear(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Knowledge base cleared")
	return nil
}
