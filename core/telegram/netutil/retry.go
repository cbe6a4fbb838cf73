// Package netutil classifies transport failures from Bot API calls.
package netutil

import (
	"errors"
	"net"
	"net/url"
	"syscall"
)

// ShouldRetry reports whether a failed request may be sent again.
// Connection failures are always retryable because the server never saw the
// request. Timeouts are retryable only for idempotent requests, since a
// timed out sendMessage may already have been delivered.
func ShouldRetry(err error, idempotent bool) bool {
	if err == nil {
		return false
	}
	if IsDialError(err) {
		return true
	}
	return idempotent && IsTimeout(err)
}

// IsDialError reports a failure to establish the connection.
func IsDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

// IsTimeout reports a network timeout anywhere in the error chain.
func IsTimeout(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
