package api

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// TransportError is a failed Bot API call that is not a benign no-op.
type TransportError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
	// RateLimited is set when the retry ceiling was exhausted on 429s.
	RateLimited bool
	Err         error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("telegram ")
	b.WriteString(e.Method)
	if e.RateLimited {
		b.WriteString(": rate limited")
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, ": %d", e.Code)
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return Redact(b.String())
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrCode is used as err_code in handler logs.
func (e *TransportError) ErrCode() string {
	switch {
	case e.RateLimited:
		return "tg_rate_limited"
	case e.Code >= 500:
		return "tg_http_5xx"
	case e.Code >= 400:
		return "tg_http_4xx"
	}
	return "tg_transport"
}

// Redact masks bot tokens embedded in URLs or messages.
func Redact(s string) string {
	return tokenRe.ReplaceAllString(s, "bot<redacted>")
}

// IsConflict reports whether err means another getUpdates consumer is active.
func IsConflict(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if te.Code == http.StatusConflict {
		return true
	}
	return strings.Contains(strings.ToLower(te.Description), "terminated by other getupdates")
}

// IsRateLimited reports whether err is an exhausted rate-limit retry.
func IsRateLimited(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.RateLimited
}
