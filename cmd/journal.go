package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/camping-sniper/internal/config"
	"github.com/example/camping-sniper/internal/journal"
	"github.com/example/camping-sniper/internal/logging"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect past runs and attempts",
	}
	cmd.AddCommand(newJournalListCmd())
	cmd.AddCommand(newJournalShowCmd())
	return cmd
}

func newJournalListCmd() *cobra.Command {
	var (
		cfgPath string
		limit   int
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(cfgPath)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.RecentRuns(context.Background(), limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				line := fmt.Sprintf("id=%d started=%s mode=%s status=%s attempts=%d",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Mode, r.Status, r.Attempts)
				if r.LastError != "" {
					line += fmt.Sprintf(" last_error=%q", r.LastError)
				}
				fmt.Fprintln(os.Stdout, line)
			}
			return nil
		},
	}
	c.Flags().StringVar(&cfgPath, "config", "", "path to YAML config file (env vars override)")
	c.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	return c
}

func newJournalShowCmd() *cobra.Command {
	var cfgPath string
	c := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the attempts of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			j, err := openJournal(cfgPath)
			if err != nil {
				return err
			}
			defer j.Close()

			atts, err := j.Attempts(context.Background(), runID)
			if err != nil {
				return err
			}
			if len(atts) == 0 {
				fmt.Fprintln(os.Stdout, "no attempts recorded")
				return nil
			}
			for _, a := range atts {
				line := fmt.Sprintf("n=%d at=%s success=%v message=%q",
					a.N, a.At.Format(time.RFC3339), a.Success, a.Message)
				if a.Evidence != "" {
					line += " evidence=" + a.Evidence
				}
				fmt.Fprintln(os.Stdout, line)
			}
			return nil
		},
	}
	c.Flags().StringVar(&cfgPath, "config", "", "path to YAML config file (env vars override)")
	return c
}

func openJournal(cfgPath string) (*journal.Journal, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if cfg.JournalPath == "" {
		return nil, fmt.Errorf("journal_path is not configured")
	}
	return journal.Open(context.Background(), cfg.JournalPath, logging.New(cfg.LogLevel))
}
