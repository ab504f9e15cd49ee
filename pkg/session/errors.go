package session

import (
	"errors"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/chatkit/pkg/guard"
	"git.solsynth.dev/hypernet/chatkit/pkg/models"
)

// Error is the session's failure type: a machine-readable reason code plus a
// human-readable message. RetryAfter is set for rate-limit rejections only.
type Error struct {
	Reason     string        `json:"reason"`
	Message    string        `json:"message"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func newError(reason, format string, args ...any) *Error {
	return &Error{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

func translateGuardError(err error) *Error {
	var limited *guard.RateLimitedError
	if errors.As(err, &limited) {
		out := newError(models.ReasonRateLimited, "sending too fast, retry after %v", limited.RetryAfter.Round(time.Millisecond))
		out.RetryAfter = limited.RetryAfter
		return out
	}
	if errors.Is(err, guard.ErrAlreadySending) {
		return newError(models.ReasonAlreadySending, "the previous message is still sending, please wait")
	}
	return newError(models.ReasonTransport, "%v", err)
}
