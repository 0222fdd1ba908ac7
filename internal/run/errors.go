package run

import "errors"

// Failure categories that abort a run before the retry loop starts. Neither
// is retried within a run; the surrounding process scheduling decides whether
// to try again later.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrPositioning    = errors.New("pre-positioning failed")
)
