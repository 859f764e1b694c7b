// Package checkin runs the per-account check-in pipeline.
package checkin

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies a per-account failure.
type Kind int

const (
	// KindConfiguration is an unknown provider or unusable credentials.
	KindConfiguration Kind = iota + 1
	// KindAcquisition is a failure to obtain WAF cookies from the browser.
	KindAcquisition
	// KindTransport is an HTTP-level failure.
	KindTransport
	// KindResponseFormat is a response that could not be interpreted.
	KindResponseFormat
	// KindCheckin is a well-formed response reporting that check-in failed.
	KindCheckin
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAcquisition:
		return "acquisition"
	case KindTransport:
		return "transport"
	case KindResponseFormat:
		return "response_format"
	case KindCheckin:
		return "checkin"
	default:
		return "unknown"
	}
}

// Error is a per-account failure carried as data inside an Outcome.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// UserInfo is the result of the user-info call.
type UserInfo struct {
	Success   bool
	Quota     decimal.Decimal
	UsedQuota decimal.Decimal
	// Display is the human readable balance line, set on success.
	Display string
	// Error describes the failure, set when Success is false.
	Error string
}

// Outcome is the result of one account's run.
type Outcome struct {
	Success  bool
	UserInfo *UserInfo
	Err      *Error
}

// Failed returns an unsuccessful outcome with the given error.
func Failed(err *Error) Outcome {
	return Outcome{Err: err}
}

// Truncate shortens verbose error text for logs and notifications.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
