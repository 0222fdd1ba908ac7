// Package clock computes the monthly reservation opening instant and waits
// for it. Waiting is two-phase: long horizons sleep in coarse chunks so a
// multi-week wait costs nothing, then the final seconds poll in small steps
// so the wakeup lands within one step of the target.
package clock

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reservations open on the 1st of every month at 10:00:00 on the site's
// wall clock.
const (
	OpenHour   = 10
	OpenMinute = 0
	OpenSecond = 0
)

const (
	coarseChunk        = 30 * time.Minute
	precisionThreshold = 5 * time.Second
	fineStep           = 10 * time.Millisecond
)

// Seoul is the reservation site's timezone. The fixed-offset fallback covers
// containers without tzdata; KST has no DST so the offset is always correct.
var Seoul = loadSeoul()

func loadSeoul() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// Scheduler owns the wall-clock math for one run. now and sleep are swapped
// out by tests; production always uses the real clock.
type Scheduler struct {
	log   zerolog.Logger
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		log:   log,
		now:   func() time.Time { return time.Now().In(Seoul) },
		sleep: sleepCtx,
	}
}

// Now returns the current instant on the site's wall clock.
func (s *Scheduler) Now() time.Time { return s.now() }

// OpeningOn returns the opening instant on the same calendar day as t.
func OpeningOn(t time.Time) time.Time {
	t = t.In(Seoul)
	return time.Date(t.Year(), t.Month(), t.Day(), OpenHour, OpenMinute, OpenSecond, 0, Seoul)
}

// NextOpening returns the next instant reservations open, strictly after now.
// On the 1st, strictly before the opening time, that is today's opening;
// at or after the opening time (and on every other day) it is the 1st of the
// following month. December rolls over into January of the next year.
func (s *Scheduler) NextOpening(now time.Time) time.Time {
	now = now.In(Seoul)
	if now.Day() == 1 {
		if open := OpeningOn(now); now.Before(open) {
			return open
		}
	}
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, OpenHour, OpenMinute, OpenSecond, 0, Seoul)
	return firstOfMonth.AddDate(0, 1, 0)
}

// SleepUntil blocks until target or context cancellation. It returns
// immediately when target is not in the future. Neither phase ever sleeps
// past the remaining time, so the overshoot is bounded by one fine step.
func (s *Scheduler) SleepUntil(ctx context.Context, target time.Time) error {
	remaining := target.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	s.log.Info().
		Time("target", target).
		Dur("remaining", remaining).
		Msg("waiting for target instant")

	// Phase 1: coarse chunks, stopping short of the precision window.
	for {
		remaining = target.Sub(s.now())
		if remaining <= precisionThreshold {
			break
		}
		chunk := remaining - precisionThreshold
		if chunk > coarseChunk {
			chunk = coarseChunk
		}
		s.log.Debug().Dur("chunk", chunk).Dur("remaining", remaining).Msg("coarse sleep")
		if err := s.sleep(ctx, chunk); err != nil {
			return err
		}
	}

	// Phase 2: fine polling for the final stretch.
	s.log.Debug().Msg("precision wait started")
	for {
		remaining = target.Sub(s.now())
		if remaining <= 0 {
			s.log.Info().Time("at", s.now()).Msg("target instant reached")
			return nil
		}
		step := fineStep
		if remaining < step {
			step = remaining
		}
		if err := s.sleep(ctx, step); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
