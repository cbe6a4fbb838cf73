package netutil

import (
	"net/http"
	"strings"
	"time"
)

// Transport resends requests that failed in a way ShouldRetry accepts. A
// request whose body cannot be replayed is never resent.
type Transport struct {
	Base http.RoundTripper
	// Retries is the number of extra attempts after the first one.
	Retries int
	// Backoff is multiplied by the attempt number between attempts.
	Backoff time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	idempotent := Idempotent(req)
	for attempt := 0; ; attempt++ {
		resp, err := base.RoundTrip(req)
		if err == nil || attempt >= t.Retries || !ShouldRetry(err, idempotent) {
			return resp, err
		}
		next, rerr := rewind(req)
		if rerr != nil {
			return nil, err
		}
		if wait := t.Backoff * time.Duration(attempt+1); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}
		req = next
	}
}

// rewind clones req with a fresh body for another attempt.
func rewind(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return next, nil
	}
	if req.GetBody == nil {
		return nil, http.ErrBodyReadAfterClose
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	next.Body = body
	return next, nil
}

// Idempotent reports whether req may be repeated after the server saw it:
// reads, long polls and file lookups.
func Idempotent(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		return true
	}
	method := req.URL.Path[strings.LastIndexByte(req.URL.Path, '/')+1:]
	return method == "getUpdates" || method == "getFile" || method == "getMe"
}
