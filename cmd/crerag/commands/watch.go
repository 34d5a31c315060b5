package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crerag/internal/watcher"
)

var watchBackfill bool

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Ingest files dropped into a directory",
		Long: `Watch a directory and ingest supported files as they are written.
Rewriting a file replaces its document; removing it deletes the document.`,
		Example: `  crerag watch ./inbox --backfill`,
		Args:    cobra.ExactArgs(1),
		RunE:    runWatch,
	}
	cmd.Flags().BoolVar(&watchBackfill, "backfill", false, "Ingest files already in the directory first")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	w := watcher.New(args[0], a.ingester, a.kb, a.logger)
	if watchBackfill {
		if err := w.Backfill(ctx); err != nil {
			return err
		}
	}
	return w.Run(ctx)
}
