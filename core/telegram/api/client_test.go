package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type rawReply struct {
	body string
	err  error
}

type fakeRaw struct {
	mu      sync.Mutex
	replies []rawReply
	calls   []string
	params  []map[string]any
}

func (f *fakeRaw) Raw(method string, payload interface{}) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	if p, ok := payload.(map[string]any); ok {
		f.params = append(f.params, p)
	}
	if len(f.replies) == 0 {
		return []byte(`{"ok":true,"result":true}`), nil
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	var data []byte
	if r.body != "" {
		data = []byte(r.body)
	}
	return data, r.err
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestClient(raw Raw, cfg Config) (*Client, *sleepRecorder) {
	rec := &sleepRecorder{}
	cfg.Sleep = rec.Sleep
	return New(raw, cfg), rec
}

func TestCallReturnsResult(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{{body: `{"ok":true,"result":{"message_id":7}}`}}}
	c, _ := newTestClient(raw, Config{})

	msg, err := c.SendMessage(context.Background(), 10, "hi")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, 7, msg.ID)

	require.Len(t, raw.params, 1)
	p := raw.params[0]
	assert.Equal(t, tele.ModeMarkdown, p["parse_mode"])
	assert.Equal(t, true, p["disable_web_page_preview"])
	assert.EqualValues(t, 10, p["chat_id"])
}

func TestSendPhotoAndDelete(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{
		{body: `{"ok":true,"result":{"message_id":9}}`},
		{body: `{"ok":true,"result":true}`},
	}}
	c, _ := newTestClient(raw, Config{})

	msg, err := c.SendPhoto(context.Background(), 10, "file-1", "")
	require.NoError(t, err)
	assert.Equal(t, 9, msg.ID)
	assert.Equal(t, "file-1", raw.params[0]["photo"])
	assert.Equal(t, tele.ModeMarkdown, raw.params[0]["parse_mode"])
	assert.NotContains(t, raw.params[0], "caption")

	require.NoError(t, c.DeleteMessage(context.Background(), 10, 9))
	assert.Equal(t, []string{"sendPhoto", "deleteMessage"}, raw.calls)
	assert.EqualValues(t, 9, raw.params[1]["message_id"])
}

func TestHelperOverridesDefaults(t *testing.T) {
	raw := &fakeRaw{}
	c, _ := newTestClient(raw, Config{})

	_, err := c.EditMessageText(context.Background(), 1, 2, "x", Options{"parse_mode": "HTML"})
	require.NoError(t, err)
	assert.Equal(t, "HTML", raw.params[0]["parse_mode"])
	assert.EqualValues(t, 2, raw.params[0]["message_id"])
}

func TestBenignFailuresAreNoOps(t *testing.T) {
	cases := []struct {
		method string
		body   string
	}{
		{"editMessageText", `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified: specified new message content and reply markup are exactly the same"}`},
		{"answerCallbackQuery", `{"ok":false,"error_code":400,"description":"Bad Request: query is too old and response timeout expired or query ID is invalid"}`},
		{"answerCallbackQuery", `{"ok":false,"error_code":400,"description":"Bad Request: query ID is invalid"}`},
		{"deleteMessage", `{"ok":false,"error_code":400,"description":"Bad Request: message to delete not found"}`},
	}
	for _, tc := range cases {
		raw := &fakeRaw{replies: []rawReply{{body: tc.body, err: errors.New("telegram: boom (400)")}}}
		c, _ := newTestClient(raw, Config{})
		res, err := c.Call(context.Background(), tc.method, nil)
		if err != nil {
			t.Fatalf("%s: expected benign no-op, got %v", tc.method, err)
		}
		if res != nil {
			t.Fatalf("%s: expected empty result, got %s", tc.method, res)
		}
	}
}

func TestNotModifiedOnSendIsAnError(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{{body: `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`}}}
	c, _ := newTestClient(raw, Config{})

	_, err := c.Call(context.Background(), "sendMessage", nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 400, te.Code)
	assert.False(t, te.RateLimited)
}

func TestRateLimitRetriesThenSucceeds(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{
		{body: `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 2","parameters":{"retry_after":2}}`},
		{body: `{"ok":true,"result":true}`},
	}}
	c, rec := newTestClient(raw, Config{MaxRetries: 3})

	res, err := c.Call(context.Background(), "sendMessage", nil)
	require.NoError(t, err)
	assert.Equal(t, "true", string(res))
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.delays)
	assert.Len(t, raw.calls, 2)
}

func TestRateLimitExhaustionPropagates(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{
		{body: `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 2","parameters":{"retry_after":2}}`},
	}}
	c, rec := newTestClient(raw, Config{MaxRetries: 3})

	_, err := c.Call(context.Background(), "sendMessage", nil)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Len(t, raw.calls, 4, "initial attempt plus three retries")
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, rec.delays)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusTooManyRequests, te.Code)
	assert.Equal(t, 2*time.Second, te.RetryAfter)
}

func TestRateLimitDelayFromDescription(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{
		{err: errors.New("telegram: Too Many Requests: retry after 5 (429)")},
		{body: `{"ok":true,"result":true}`},
	}}
	c, rec := newTestClient(raw, Config{})

	_, err := c.Call(context.Background(), "sendMessage", nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second}, rec.delays)
}

func TestRateLimitFallbackDelay(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{
		{body: `{"ok":false,"error_code":429,"description":"Too Many Requests"}`},
		{body: `{"ok":true,"result":true}`},
	}}
	c, rec := newTestClient(raw, Config{})

	_, err := c.Call(context.Background(), "sendMessage", nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{DefaultRetryAfter}, rec.delays)
}

func TestFloodErrorFromTransport(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{
		{err: tele.FloodError{RetryAfter: 1}},
		{body: `{"ok":true,"result":true}`},
	}}
	c, rec := newTestClient(raw, Config{})

	_, err := c.Call(context.Background(), "sendMessage", nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}

func TestTransportErrorRedactsToken(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{
		{err: errors.New(`Post "https://api.telegram.org/bot123456:AAH-secret_token/sendMessage": dial tcp: i/o timeout`)},
	}}
	c, _ := newTestClient(raw, Config{})

	_, err := c.Call(context.Background(), "sendMessage", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "AAH-secret_token")
	assert.Contains(t, err.Error(), "bot<redacted>")
}

func TestIsConflict(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{
		{body: `{"ok":false,"error_code":409,"description":"Conflict: terminated by other getUpdates request; make sure that only one bot instance is running"}`},
	}}
	c, _ := newTestClient(raw, Config{})

	_, err := c.GetUpdates(context.Background(), 0, 1, nil)
	assert.True(t, IsConflict(err))
	assert.False(t, IsConflict(errors.New("other")))
}

func TestGetUpdatesDecodes(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{
		{body: `{"ok":true,"result":[{"update_id":5,"message":{"message_id":1,"text":"hi","chat":{"id":9}}}]}`},
	}}
	c, _ := newTestClient(raw, Config{})

	updates, err := c.GetUpdates(context.Background(), 3, 50, []string{"message", "callback_query"})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 5, updates[0].ID)
	assert.Equal(t, "hi", updates[0].Message.Text)
	assert.Equal(t, 3, raw.params[0]["offset"])
	assert.Equal(t, []string{"message", "callback_query"}, raw.params[0]["allowed_updates"])
}

func TestCallHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	raw := rawFunc(func(string, interface{}) ([]byte, error) {
		<-block
		return nil, nil
	})
	c, _ := newTestClient(raw, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Call(ctx, "getUpdates", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type rawFunc func(string, interface{}) ([]byte, error)

func (f rawFunc) Raw(method string, payload interface{}) ([]byte, error) { return f(method, payload) }

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file/bot42:tok/photos/a.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "jpegdata")
	}))
	defer srv.Close()

	c, _ := newTestClient(&fakeRaw{}, Config{Token: "42:tok", APIURL: srv.URL + "/", HTTPClient: srv.Client()})

	var buf strings.Builder
	n, err := c.DownloadFile(context.Background(), "photos/a.jpg", &buf)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
	assert.Equal(t, "jpegdata", buf.String())

	_, err = c.DownloadFile(context.Background(), "missing.jpg", &buf)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.Code)
}

func TestGetFileRequiresPath(t *testing.T) {
	raw := &fakeRaw{replies: []rawReply{{body: `{"ok":true,"result":{"file_id":"x"}}`}}}
	c, _ := newTestClient(raw, Config{})

	_, err := c.GetFile(context.Background(), "x")
	require.Error(t, err)
}
