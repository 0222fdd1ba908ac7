package clock

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testScheduler() *Scheduler {
	s := New(zerolog.Nop())
	return s
}

func at(value string) time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04:05", value, Seoul)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextOpening(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		now  string
		want string
	}{
		{name: "first of month before opening", now: "2026-03-01T09:30:00", want: "2026-03-01T10:00:00"},
		{name: "first of month at opening exactly", now: "2026-03-01T10:00:00", want: "2026-04-01T10:00:00"},
		{name: "first of month after opening", now: "2026-03-01T10:05:00", want: "2026-04-01T10:00:00"},
		{name: "mid month", now: "2026-03-15T14:00:00", want: "2026-04-01T10:00:00"},
		{name: "last day of month", now: "2026-03-31T23:59:59", want: "2026-04-01T10:00:00"},
		{name: "december rollover", now: "2026-12-15T14:00:00", want: "2027-01-01T10:00:00"},
		{name: "first of january before opening", now: "2027-01-01T00:00:01", want: "2027-01-01T10:00:00"},
	}

	s := testScheduler()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := s.NextOpening(at(tt.now))
			if !got.Equal(at(tt.want)) {
				t.Fatalf("NextOpening(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}

func TestNextOpeningAlwaysInFuture(t *testing.T) {
	t.Parallel()
	s := testScheduler()
	now := at("2026-01-01T00:00:00")
	for i := 0; i < 400; i++ {
		got := s.NextOpening(now)
		if !got.After(now) {
			t.Fatalf("NextOpening(%s) = %s is not in the future", now, got)
		}
		if got.Day() != 1 {
			t.Fatalf("NextOpening(%s) = %s is not on the 1st", now, got)
		}
		if got.Hour() != OpenHour || got.Minute() != OpenMinute || got.Second() != OpenSecond {
			t.Fatalf("NextOpening(%s) = %s is not at the opening time", now, got)
		}
		now = now.Add(37*time.Hour + 13*time.Minute)
	}
}

func TestSleepUntilPastTargetReturnsImmediately(t *testing.T) {
	t.Parallel()
	s := testScheduler()
	slept := false
	s.sleep = func(context.Context, time.Duration) error {
		slept = true
		return nil
	}
	if err := s.SleepUntil(context.Background(), s.now().Add(-time.Second)); err != nil {
		t.Fatalf("SleepUntil error: %v", err)
	}
	if slept {
		t.Fatal("slept for a target in the past")
	}
}

func TestSleepUntilShortTarget(t *testing.T) {
	t.Parallel()
	s := testScheduler()
	start := time.Now()
	target := start.Add(100 * time.Millisecond)
	if err := s.SleepUntil(context.Background(), target); err != nil {
		t.Fatalf("SleepUntil error: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 90*time.Millisecond || elapsed >= time.Second {
		t.Fatalf("elapsed = %v, want [90ms, 1s)", elapsed)
	}
}

// Simulated clock: verifies chunk sizing over a multi-week horizon without
// actually sleeping.
func TestSleepUntilChunking(t *testing.T) {
	t.Parallel()
	s := testScheduler()

	now := at("2026-03-10T00:00:00")
	target := at("2026-04-01T10:00:00")

	var chunks []time.Duration
	s.now = func() time.Time { return now }
	s.sleep = func(_ context.Context, d time.Duration) error {
		chunks = append(chunks, d)
		now = now.Add(d)
		return nil
	}

	if err := s.SleepUntil(context.Background(), target); err != nil {
		t.Fatalf("SleepUntil error: %v", err)
	}
	if now.Before(target) {
		t.Fatalf("woke up at %s, before target %s", now, target)
	}
	if overshoot := now.Sub(target); overshoot > fineStep {
		t.Fatalf("overshoot = %v, want <= %v", overshoot, fineStep)
	}
	for i, c := range chunks {
		if c > coarseChunk {
			t.Fatalf("chunk %d = %v exceeds ceiling %v", i, c, coarseChunk)
		}
		if c <= 0 {
			t.Fatalf("chunk %d = %v is not positive", i, c)
		}
	}
	// The fine phase must have run: final steps are the small polling interval.
	last := chunks[len(chunks)-1]
	if last > fineStep {
		t.Fatalf("final step = %v, want <= %v", last, fineStep)
	}
}

func TestSleepUntilCancelled(t *testing.T) {
	t.Parallel()
	s := testScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.SleepUntil(ctx, s.now().Add(time.Hour))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
