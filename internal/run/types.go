package run

import (
	"context"
	"time"

	"github.com/example/camping-sniper/internal/classify"
)

// State tracks one run through its lifecycle. Transitions are strictly
// forward; only Attempting repeats, once per retry.
type State int

const (
	StateFresh State = iota
	StateLoggedIn
	StatePositioned
	StateWaiting
	StateAttempting
	StateSucceeded
	StateExhausted
	StateAbortedEarly
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateLoggedIn:
		return "logged_in"
	case StatePositioned:
		return "positioned"
	case StateWaiting:
		return "waiting"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateAbortedEarly:
		return "aborted"
	}
	return "unknown"
}

// Result is the single terminal outcome of a run.
type Result struct {
	State    State
	Attempts int
	Message  string
	Evidence string
	DryRun   bool

	// Err categorizes early aborts (ErrAuthentication, ErrPositioning).
	// Nil for succeeded and exhausted runs.
	Err error
}

// PageDriver is the page-interaction capability the controller drives.
// Implementations fail closed: any navigation, timeout or authentication
// problem surfaces as an error or a failed outcome.
type PageDriver interface {
	Login(ctx context.Context) error
	PrePosition(ctx context.Context) error

	// Attempt performs one reload-fill-submit-classify cycle. With dryRun
	// set it stops before submitting and reports field detection instead.
	Attempt(ctx context.Context, dryRun bool) classify.Outcome

	// Screenshot is best-effort evidence capture; it returns an empty path
	// on failure and never fails the run.
	Screenshot(ctx context.Context, label string) string

	Close()
}

// Notifier delivers run reports. Calls are fire-and-forget: implementations
// log delivery failures and never surface them to the controller.
type Notifier interface {
	Startup(target string)
	Success(report string)
	Failure(reason, evidence string)
}

// Waiter suspends the run until a wall-clock instant.
type Waiter interface {
	Now() time.Time
	SleepUntil(ctx context.Context, target time.Time) error
}

// Journal records run and attempt history. All writes are best-effort from
// the controller's point of view; errors are logged and ignored.
type Journal interface {
	StartRun(ctx context.Context, mode string) (int64, error)
	RecordAttempt(ctx context.Context, runID int64, n int, success bool, message, evidence string) error
	FinishRun(ctx context.Context, runID int64, status string, attempts int, lastErr string) error
}
