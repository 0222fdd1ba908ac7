package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/camping-sniper/internal/browser"
	"github.com/example/camping-sniper/internal/clock"
	"github.com/example/camping-sniper/internal/config"
	"github.com/example/camping-sniper/internal/journal"
	"github.com/example/camping-sniper/internal/logging"
	"github.com/example/camping-sniper/internal/notify"
	"github.com/example/camping-sniper/internal/run"
)

func newRunCmd() *cobra.Command {
	var (
		cfgPath string
		runNow  bool
		dryRun  bool
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Wait for the next opening instant and attempt the reservation",
		Long: `Scheduled mode (default) waits until the next monthly opening (1st of the
month, 10:00:00 KST), launching the browser shortly before it. --now skips
the wait and attempts immediately. --dry-run logs in, loads the reservation
page and verifies the form structure without ever submitting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, log)
			if err != nil {
				return fmt.Errorf("telegram: %w", err)
			}

			sched := clock.New(log)

			var jnl run.Journal
			if cfg.JournalPath != "" {
				j, err := journal.Open(ctx, cfg.JournalPath, log)
				if err != nil {
					log.Warn().Err(err).Msg("journal unavailable, continuing without history")
				} else {
					defer j.Close()
					jnl = j
				}
			}

			if !runNow {
				open := sched.NextOpening(sched.Now())
				log.Info().Time("opening", open).Msg("next reservation opening")
				notifier.Startup(open.Format("2006-01-02 15:04:05 MST"))

				// Launch the browser only shortly before the opening so a
				// weeks-long wait does not hold a session open.
				if err := sched.SleepUntil(ctx, open.Add(-cfg.PrePositionLead)); err != nil {
					return err
				}
			} else {
				log.Info().Bool("dry_run", dryRun).Msg("immediate mode")
			}

			driver, err := browser.New(cfg, log)
			if err != nil {
				notifier.Failure("브라우저 시작 실패: "+err.Error(), "")
				return err
			}

			ctrl := run.New(cfg, driver, sched, notifier, jnl, log)
			res := ctrl.Run(ctx, runNow, dryRun)
			log.Info().
				Str("state", res.State.String()).
				Int("attempts", res.Attempts).
				Msg("run finished")
			return nil
		},
	}

	c.Flags().StringVar(&cfgPath, "config", "", "path to YAML config file (env vars override)")
	c.Flags().BoolVar(&runNow, "now", false, "skip waiting for the opening instant and attempt immediately")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "validate login and form structure without submitting (single attempt)")
	return c
}
