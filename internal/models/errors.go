package models

import (
	"errors"
	"fmt"
)

// ErrNoContent signals an empty message set. Not a failure: the caller
// decides how to present it, and no model call is made.
var ErrNoContent = errors.New("no messages to summarize")

// ErrCapacity marks a capacity-class model failure (rate limit, quota
// exhaustion, timeout). Recoverable: on-demand generation degrades to a
// transcript export, scheduled generation retries on the next tick.
var ErrCapacity = errors.New("model capacity exhausted")

// ErrChatUnreachable marks a permanent delivery failure: the target chat is
// gone or the bot was removed from it. Schedules pointing at such chats are
// deactivated, not retried.
var ErrChatUnreachable = errors.New("chat permanently unreachable")

// ValidationError rejects malformed configuration input synchronously,
// before storage is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
