package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bpa/internal/adapters/driving/watcher"
	"github.com/custodia-labs/bpa/internal/core/domain"
)

var (
	watchRole       string
	watchDepartment string
	watchDebounce   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest files as they appear in a directory",
	Long: `Watch a directory and ingest every supported file that is created or
written in it. Writes are debounced so a file is ingested once it is quiet.
Each ingestion creates a new document record.

Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRole, "role", "student", "access role: public, student or staff")
	watchCmd.Flags().StringVar(&watchDepartment, "department", domain.DefaultDepartment, "owning department")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before ingesting")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	role, err := domain.ParseAccessRole(watchRole)
	if err != nil {
		return err
	}

	w, err := watcher.New(ingestService, watcher.Config{
		Dir:      args[0],
		Options:  domain.IngestOptions{AccessRole: role, Department: watchDepartment},
		Debounce: watchDebounce,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := make(chan watcher.Result)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range results {
			if res.Err != nil {
				cmd.PrintErrf("%s %s: %v\n", failStyle.Render("FAILED"), res.Path, res.Err)
				continue
			}
			printRecord(cmd, res.Record)
		}
	}()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	err = w.Run(ctx, results)
	close(results)
	<-done
	return err
}
