package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Options are request parameters; caller values override helper defaults.
type Options map[string]any

func merge(base Options, overrides ...Options) Options {
	out := make(Options, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

func decodeResult[T any](raw json.RawMessage, method string) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return &out, nil
}

// SendMessage posts Markdown text with link previews disabled.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts ...Options) (*tele.Message, error) {
	params := merge(Options{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               tele.ModeMarkdown,
		"disable_web_page_preview": true,
	}, opts...)
	raw, err := c.Call(ctx, "sendMessage", params)
	if err != nil {
		return nil, err
	}
	return decodeResult[tele.Message](raw, "sendMessage")
}

// EditMessageText replaces a message in place. An unchanged message returns
// (nil, nil).
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts ...Options) (*tele.Message, error) {
	params := merge(Options{
		"chat_id":                  chatID,
		"message_id":               messageID,
		"text":                     text,
		"parse_mode":               tele.ModeMarkdown,
		"disable_web_page_preview": true,
	}, opts...)
	raw, err := c.Call(ctx, "editMessageText", params)
	if err != nil {
		return nil, err
	}
	return decodeResult[tele.Message](raw, "editMessageText")
}

// SendPhoto posts photo, a file id or URL, with a Markdown caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo, caption string, opts ...Options) (*tele.Message, error) {
	params := merge(Options{
		"chat_id":    chatID,
		"photo":      photo,
		"parse_mode": tele.ModeMarkdown,
	}, opts...)
	if caption != "" {
		params["caption"] = caption
	}
	raw, err := c.Call(ctx, "sendPhoto", params)
	if err != nil {
		return nil, err
	}
	return decodeResult[tele.Message](raw, "sendPhoto")
}

// DeleteMessage removes a message. A message that is already gone is not an
// error.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := c.Call(ctx, "deleteMessage", Options{"chat_id": chatID, "message_id": messageID})
	return err
}

// AnswerCallbackQuery acknowledges a callback, optionally with a toast or alert.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string, alert bool) error {
	params := Options{"callback_query_id": callbackID}
	if text != "" {
		params["text"] = text
	}
	if alert {
		params["show_alert"] = true
	}
	_, err := c.Call(ctx, "answerCallbackQuery", params)
	return err
}

// GetFile resolves a file id to a downloadable path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*tele.File, error) {
	raw, err := c.Call(ctx, "getFile", Options{"file_id": fileID})
	if err != nil {
		return nil, err
	}
	f, err := decodeResult[tele.File](raw, "getFile")
	if err != nil {
		return nil, err
	}
	if f == nil || f.FilePath == "" {
		return nil, &TransportError{Method: "getFile", Description: "empty file path"}
	}
	return f, nil
}

// DownloadFile streams the file at filePath into w.
func (c *Client) DownloadFile(ctx context.Context, filePath string, w io.Writer) (int64, error) {
	url := c.cfg.APIURL + "/file/bot" + c.cfg.Token + "/" + strings.TrimLeft(filePath, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &TransportError{Method: "downloadFile", Err: err}
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		c.cfg.Metrics.ObserveAPICall("downloadFile", "fail")
		return 0, &TransportError{Method: "downloadFile", Description: Redact(err.Error()), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.cfg.Metrics.ObserveAPICall("downloadFile", "fail")
		return 0, &TransportError{Method: "downloadFile", Code: resp.StatusCode, Description: resp.Status}
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		c.cfg.Metrics.ObserveAPICall("downloadFile", "fail")
		return n, &TransportError{Method: "downloadFile", Description: Redact(err.Error()), Err: err}
	}
	c.cfg.Metrics.ObserveAPICall("downloadFile", "ok")
	return n, nil
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset, timeoutSeconds int, allowed []string) ([]tele.Update, error) {
	params := Options{
		"offset":  offset,
		"timeout": timeoutSeconds,
	}
	if len(allowed) > 0 {
		params["allowed_updates"] = allowed
	}
	raw, err := c.Call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}
	var updates []tele.Update
	if len(raw) == 0 {
		return updates, nil
	}
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("telegram getUpdates: decode result: %w", err)
	}
	return updates, nil
}

// DeleteWebhook switches the bot to polling mode.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	_, err := c.Call(ctx, "deleteWebhook", Options{"drop_pending_updates": dropPending})
	return err
}

// SetMyCommands publishes the command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []tele.Command) error {
	_, err := c.Call(ctx, "setMyCommands", Options{"commands": commands})
	return err
}
