package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/newsbot/core/telegram/netutil"
)

// HTTPClientOptions tunes the Bot API HTTP client.
type HTTPClientOptions struct {
	// PollTimeout is the getUpdates long-poll wait the deadlines must outlast.
	PollTimeout time.Duration
	Retries     int
	Backoff     time.Duration
}

// BuildHTTPClient returns the client shared by API calls and file downloads.
// Connection failures are retried twice; timeouts only for idempotent calls.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	return NewHTTPClient(HTTPClientOptions{PollTimeout: pollTimeout, Retries: 2, Backoff: time.Second})
}

// NewHTTPClient builds a client from opts.
func NewHTTPClient(opts HTTPClientOptions) *http.Client {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: opts.PollTimeout + 10*time.Second,
	}
	return &http.Client{
		Timeout:   opts.PollTimeout + 15*time.Second,
		Transport: &netutil.Transport{Base: base, Retries: opts.Retries, Backoff: opts.Backoff},
	}
}
