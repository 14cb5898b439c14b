package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/optionsim/internal/config"
	"github.com/eddiefleurent/optionsim/internal/engine"
	"github.com/eddiefleurent/optionsim/internal/results"
	"github.com/eddiefleurent/optionsim/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest from a config file",
	Long: `Run executes one backtest described by the config file and prints the
summary report. Interrupting the run (Ctrl-C) stops it cleanly and still
reports the partial results accumulated so far.

Example:
  optionsim run -c configs/strangle.yaml --archive runs.json`,
	RunE: runBacktest,
}

var (
	runJSON    bool
	runQuiet   bool
	runArchive string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runJSON, "json", false, "emit the full summary as JSON instead of text")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "suppress progress output")
	runCmd.Flags().StringVar(&runArchive, "archive", "", "append the summary to this JSON archive file")
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	provider, err := buildProvider(cfg, logger)
	if err != nil {
		return err
	}
	tools := buildTools(cfg, provider, logger)

	runner := engine.New(cfg, provider, tools, logger)
	if !runQuiet {
		runner.WithProgress(func(percent int, phase string) {
			fmt.Fprintf(os.Stderr, "\r%3d%%  %-24s", percent, phase)
			if percent >= 100 {
				fmt.Fprintln(os.Stderr)
			}
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx)
	if err != nil {
		if kind, ok := engine.KindOf(err); ok && kind == engine.FailureCanceled && summary != nil {
			fmt.Fprintln(os.Stderr, "\nrun canceled, reporting partial results")
		} else {
			return err
		}
	}

	if err := emitSummary(summary); err != nil {
		return err
	}
	if runArchive != "" {
		archive, err := storage.NewStorage(runArchive)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		if err := archive.SaveSummary(summary); err != nil {
			return fmt.Errorf("archiving run: %w", err)
		}
		logger.WithField("run_id", summary.RunID).Info("run archived")
	}
	return nil
}

func emitSummary(s *results.Summary) error {
	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	results.WriteText(os.Stdout, s)
	return nil
}
