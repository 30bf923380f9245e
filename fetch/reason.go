package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Reason classifies why a fetch failed. The values end up verbatim in the
// failed-URL output, so they are stable strings.
type Reason string

const (
	ReasonNetwork Reason = "network"
	ReasonHTTP4xx Reason = "http-4xx"
	ReasonHTTP5xx Reason = "http-5xx"
	ReasonAntiBot Reason = "anti-bot"
	ReasonEmpty   Reason = "empty"
)

// Error is a classified fetch failure.
type Error struct {
	Reason Reason
	Status int
	Err    error
}

// Retryable reports whether the failure is worth another attempt: network
// errors, timeouts, 5xx responses and 429 rate limiting. Anti-bot and other
// 4xx failures are final; repeating them only burns the site's goodwill.
func (e *Error) Retryable() bool {
	if e.Status == 429 {
		return true
	}
	switch e.Reason {
	case ReasonNetwork, ReasonHTTP5xx:
		return true
	default:
		return false
	}
}

// CoolsDown reports whether this failure should throttle the whole site
// before the next request, whichever task issues it.
func (e *Error) CoolsDown() bool {
	return e.Status == 429 || e.Reason == ReasonAntiBot
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch: %s: %v", e.Reason, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("fetch: %s (status %d)", e.Reason, e.Status)
	}
	return fmt.Sprintf("fetch: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf extracts the classification from an error chain, defaulting to
// network for unclassified failures.
func ReasonOf(err error) Reason {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ReasonNetwork
}

// antiBotMarkers are lowercase fragments of block/CAPTCHA interstitials.
var antiBotMarkers = []string{
	"captcha",
	"access denied",
	"cf-chl",
	"are you a robot",
	"請輸入驗證碼",
	"驗證你是否人類",
}

// classify maps a page-load outcome to a Reason. A nil return means the
// attempt succeeded.
func classify(status int, html string, err error) *Error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{Reason: ReasonNetwork, Err: err}
		}
		return &Error{Reason: ReasonNetwork, Err: err}
	}

	switch {
	case status == 429:
		// Rate limited: retried with backoff, but still cools the site down.
		return &Error{Reason: ReasonHTTP4xx, Status: status}
	case status == 403:
		return &Error{Reason: ReasonAntiBot, Status: status}
	case status >= 500:
		return &Error{Reason: ReasonHTTP5xx, Status: status}
	case status >= 400:
		return &Error{Reason: ReasonHTTP4xx, Status: status}
	}

	if strings.TrimSpace(stripTags(html)) == "" {
		return &Error{Reason: ReasonEmpty, Status: status}
	}

	lower := strings.ToLower(html)
	for _, marker := range antiBotMarkers {
		if strings.Contains(lower, marker) {
			return &Error{Reason: ReasonAntiBot, Status: status}
		}
	}

	return nil
}

// stripTags is a crude emptiness check: a page whose markup carries no text
// at all is treated as empty content.
func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
