package netutil

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	dial := &url.Error{Op: "Post", URL: "https://api", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}}
	timeout := &url.Error{Op: "Post", URL: "https://api", Err: timeoutErr{}}
	dns := &net.DNSError{Err: "no such host", Name: "api"}

	cases := []struct {
		name       string
		err        error
		idempotent bool
		want       bool
	}{
		{"nil", nil, true, false},
		{"dial non-idempotent", dial, false, true},
		{"dns", dns, false, true},
		{"timeout idempotent", timeout, true, true},
		{"timeout non-idempotent", timeout, false, false},
		{"plain", errors.New("boom"), true, false},
	}
	for _, tc := range cases {
		if got := ShouldRetry(tc.err, tc.idempotent); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

type stepTransport struct {
	errs  []error
	calls int
	body  []string
}

func (s *stepTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		s.body = append(s.body, string(b))
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestTransportRetriesDialFailures(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	base := &stepTransport{errs: []error{dial, dial}}
	tr := &Transport{Base: base, Retries: 2}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader(`{"text":"hi"}`))
	resp, err := tr.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
	for i, b := range base.body {
		if b != `{"text":"hi"}` {
			t.Fatalf("attempt %d sent body %q", i+1, b)
		}
	}
}

func TestTransportKeepsTimedOutSends(t *testing.T) {
	base := &stepTransport{errs: []error{timeoutErr{}}}
	tr := &Transport{Base: base, Retries: 2}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader("{}"))
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("expected timeout to surface")
	}
	if base.calls != 1 {
		t.Fatalf("non-idempotent call resent %d times", base.calls-1)
	}

	base = &stepTransport{errs: []error{timeoutErr{}}}
	tr.Base = base
	req, _ = http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/getUpdates", strings.NewReader("{}"))
	if _, err := tr.RoundTrip(req); err != nil {
		t.Fatalf("getUpdates timeout should be retried: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("calls = %d, want 2", base.calls)
	}
}

func TestIdempotent(t *testing.T) {
	get, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/file/botX/a.jpg", nil)
	poll, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/getUpdates", nil)
	send, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", nil)
	if !Idempotent(get) || !Idempotent(poll) || Idempotent(send) {
		t.Fatalf("unexpected idempotency classification")
	}
}
