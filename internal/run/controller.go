// Package run drives one complete reservation flow: login, pre-position,
// wait for the opening instant, then a bounded retry loop. Exactly one
// terminal notification is emitted per run and the driver is closed on every
// exit path.
package run

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/camping-sniper/internal/classify"
	"github.com/example/camping-sniper/internal/clock"
	"github.com/example/camping-sniper/internal/config"
)

type Controller struct {
	cfg     config.Config
	driver  PageDriver
	waiter  Waiter
	notify  Notifier
	journal Journal // optional
	log     zerolog.Logger

	state State

	// delay is the inter-attempt sleep, swapped out by tests.
	delay func(context.Context, time.Duration) error
}

func New(cfg config.Config, driver PageDriver, waiter Waiter, notify Notifier, journal Journal, log zerolog.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		driver:  driver,
		waiter:  waiter,
		notify:  notify,
		journal: journal,
		log:     log,
		state:   StateFresh,
		delay:   delayCtx,
	}
}

// Run executes one reservation flow and returns its terminal result. runNow
// skips the opening-instant wait; dryRun caps the budget at one attempt and
// suppresses submission.
func (c *Controller) Run(ctx context.Context, runNow, dryRun bool) Result {
	defer c.driver.Close()

	runID := c.journalStart(ctx, mode(runNow, dryRun))

	// Step 1: login. Not retried within a run.
	c.log.Info().Msg("logging in")
	if err := c.driver.Login(ctx); err != nil {
		c.log.Error().Err(err).Msg("login failed")
		ss := c.driver.Screenshot(ctx, "login_failed")
		return c.abort(ctx, runID, fmt.Errorf("%w: %v", ErrAuthentication, err),
			"로그인 실패 — 자격증명을 확인하세요.", ss, dryRun)
	}
	c.setState(StateLoggedIn)

	// Step 2: pre-position on the reservation page.
	c.log.Info().Msg("loading reservation page")
	if err := c.driver.PrePosition(ctx); err != nil {
		c.log.Error().Err(err).Msg("pre-positioning failed")
		ss := c.driver.Screenshot(ctx, "preposition_failed")
		return c.abort(ctx, runID, fmt.Errorf("%w: %v", ErrPositioning, err),
			"예약 페이지 로드 실패", ss, dryRun)
	}
	c.setState(StatePositioned)

	// Step 3: wait out the remainder until today's opening instant.
	if !runNow {
		open := clock.OpeningOn(c.waiter.Now())
		if c.waiter.Now().Before(open) {
			c.setState(StateWaiting)
			if err := c.waiter.SleepUntil(ctx, open); err != nil {
				return c.abort(ctx, runID, err, "대기 중 중단: "+err.Error(), "", dryRun)
			}
		}
		c.log.Info().Time("at", c.waiter.Now()).Msg("opening instant reached")
	} else {
		c.log.Info().Msg("immediate mode, skipping the opening wait")
	}

	return c.retryLoop(ctx, runID, dryRun)
}

func (c *Controller) retryLoop(ctx context.Context, runID int64, dryRun bool) Result {
	budget := c.cfg.MaxRetries
	if dryRun {
		// A dry run only validates page structure; one attempt tells all.
		budget = 1
	}
	c.log.Info().Int("budget", budget).Bool("dry_run", dryRun).Msg("starting reservation loop")

	lastReason := "시도 없음"
	lastEvidence := ""

	for attempt := 1; attempt <= budget; attempt++ {
		c.setState(StateAttempting)
		c.log.Info().Int("attempt", attempt).Int("budget", budget).Msg("attempting")

		outcome := c.driver.Attempt(ctx, dryRun)

		if outcome.Succeeded {
			label := "success"
			if dryRun {
				label = "dryrun_success"
			}
			outcome.Evidence = c.driver.Screenshot(ctx, label)
			c.journalAttempt(ctx, runID, attempt, outcome)

			c.setState(StateSucceeded)
			c.notify.Success(c.successReport(attempt, budget, dryRun, outcome.Message))
			c.journalFinish(ctx, runID, StateSucceeded, attempt, "")
			c.log.Info().Int("attempt", attempt).Msg("reservation loop succeeded")
			return Result{State: StateSucceeded, Attempts: attempt, Message: outcome.Message, Evidence: outcome.Evidence, DryRun: dryRun}
		}

		outcome.Evidence = c.driver.Screenshot(ctx, fmt.Sprintf("attempt_%d_failed", attempt))
		c.journalAttempt(ctx, runID, attempt, outcome)
		lastReason = outcome.Message
		lastEvidence = outcome.Evidence
		c.log.Warn().Int("attempt", attempt).Bool("ambiguous", outcome.Ambiguous).Str("reason", outcome.Message).Msg("attempt failed")

		if attempt < budget {
			if err := c.delay(ctx, c.cfg.RetryDelay); err != nil {
				return c.abort(ctx, runID, err, "재시도 대기 중 중단: "+err.Error(), lastEvidence, dryRun)
			}
		}
	}

	c.setState(StateExhausted)
	reason := fmt.Sprintf("%s모든 시도 소진 (%d회)\n마지막 사유: %s", dryRunTag(dryRun), budget, lastReason)
	c.notify.Failure(reason, lastEvidence)
	c.journalFinish(ctx, runID, StateExhausted, budget, lastReason)
	c.log.Error().Int("attempts", budget).Msg("all attempts exhausted")
	return Result{State: StateExhausted, Attempts: budget, Message: lastReason, Evidence: lastEvidence, DryRun: dryRun}
}

// abort ends the run before (or outside) the retry loop with exactly one
// failure notification.
func (c *Controller) abort(ctx context.Context, runID int64, err error, reason, evidence string, dryRun bool) Result {
	c.setState(StateAbortedEarly)
	c.notify.Failure(reason, evidence)
	c.journalFinish(ctx, runID, StateAbortedEarly, 0, reason)
	return Result{State: StateAbortedEarly, Message: reason, Evidence: evidence, DryRun: dryRun, Err: err}
}

func (c *Controller) successReport(attempt, budget int, dryRun bool, message string) string {
	if dryRun {
		return "[DRY-RUN] 페이지 구조 확인 완료\n" + message
	}
	return fmt.Sprintf("시도: %d/%d\n날짜: %s\n구역: %s\n인원: %d명\n메시지: %s",
		attempt, budget, c.cfg.CampingDate, c.cfg.CampsiteName, c.cfg.AttendeeCount, message)
}

func (c *Controller) setState(next State) {
	if next == c.state {
		return
	}
	// Transitions only move forward; Attempting re-entry is handled above by
	// the equality check.
	if next < c.state {
		c.log.Error().Str("from", c.state.String()).Str("to", next.String()).Msg("backward state transition")
		return
	}
	c.log.Debug().Str("from", c.state.String()).Str("to", next.String()).Msg("state")
	c.state = next
}

// Journal writes never influence the run outcome.

func (c *Controller) journalStart(ctx context.Context, mode string) int64 {
	if c.journal == nil {
		return 0
	}
	id, err := c.journal.StartRun(ctx, mode)
	if err != nil {
		c.log.Warn().Err(err).Msg("journal start failed")
		return 0
	}
	return id
}

func (c *Controller) journalAttempt(ctx context.Context, runID int64, n int, o classify.Outcome) {
	if c.journal == nil || runID == 0 {
		return
	}
	if err := c.journal.RecordAttempt(ctx, runID, n, o.Succeeded, o.Message, o.Evidence); err != nil {
		c.log.Warn().Err(err).Msg("journal attempt write failed")
	}
}

func (c *Controller) journalFinish(ctx context.Context, runID int64, state State, attempts int, lastErr string) {
	if c.journal == nil || runID == 0 {
		return
	}
	if err := c.journal.FinishRun(ctx, runID, state.String(), attempts, lastErr); err != nil {
		c.log.Warn().Err(err).Msg("journal finish failed")
	}
}

func mode(runNow, dryRun bool) string {
	m := "scheduled"
	if runNow {
		m = "now"
	}
	if dryRun {
		m += "+dry-run"
	}
	return m
}

func dryRunTag(dryRun bool) string {
	if dryRun {
		return "[DRY-RUN] "
	}
	return ""
}

func delayCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
