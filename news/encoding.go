package news

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Paragraph is a text block: plain text, or a link block rendered by the web layer.
type Paragraph struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Plain reports whether p encodes as a bare string.
func (p Paragraph) Plain() bool { return p.Type == "" && p.URL == "" }

// MarshalJSON writes plain paragraphs as strings.
func (p Paragraph) MarshalJSON() ([]byte, error) {
	if p.Plain() {
		return json.Marshal(p.Text)
	}
	type block Paragraph
	return json.Marshal(block(p))
}

// UnmarshalJSON accepts a string, a block object or any scalar.
func (p *Paragraph) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*p = Paragraph{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Paragraph{Text: s}
	case data[0] == '{':
		type block Paragraph
		var b block
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*p = Paragraph(b)
	default:
		*p = Paragraph{Text: string(data)}
	}
	return nil
}

// Paragraphs is the ordered text of an item.
type Paragraphs []Paragraph

// Plain builds plain paragraphs.
func Plain(texts ...string) Paragraphs {
	out := make(Paragraphs, len(texts))
	for i, t := range texts {
		out[i] = Paragraph{Text: t}
	}
	return out
}

// Strings returns the text of every paragraph.
func (ps Paragraphs) Strings() []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text
	}
	return out
}

// UnmarshalJSON coerces a scalar into a one-element sequence.
func (ps *Paragraphs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ps = nil
		return nil
	}
	if data[0] != '[' {
		var p Paragraph
		if err := p.UnmarshalJSON(data); err != nil {
			return err
		}
		*ps = Paragraphs{p}
		return nil
	}
	var list []Paragraph
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*ps = list
	return nil
}

// Images is an ordered list of stored file names. A single image encodes as a
// bare string to match the layout the web layer reads.
type Images []string

// MarshalJSON writes one image as a string and several as an array.
func (im Images) MarshalJSON() ([]byte, error) {
	if len(im) == 1 {
		return json.Marshal(im[0])
	}
	return json.Marshal([]string(im))
}

// UnmarshalJSON accepts a string or an array of strings.
func (im *Images) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*im = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			*im = nil
		} else {
			*im = Images{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	out := list[:0]
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		*im = nil
		return nil
	}
	*im = out
	return nil
}

// UnmarshalJSON decodes field by field so one mistyped field does not reject
// the item: scalars are coerced, and values that cannot be coerced are left
// zero for Normalize to repair. Only a non-object is an error.
func (it *Item) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("item: not an object")
	}

	var out Item
	out.ID, _ = LooseInt(fields["id"])
	out.Title = looseString(fields["title"])
	if raw, ok := fields["text"]; ok && out.Text.UnmarshalJSON(raw) != nil {
		out.Text = nil
	}
	if raw, ok := fields["image"]; ok && out.Image.UnmarshalJSON(raw) != nil {
		out.Image = nil
	}
	out.Date = looseString(fields["date"])
	out.Status = Status(strings.ToLower(looseString(fields["status"])))
	out.ShowOnMain = looseBool(fields["showOnMain"])
	out.CreatedAt = parseTimestamp(fields["createdAt"])
	out.UpdatedAt = parseTimestamp(fields["updatedAt"])
	if raw := fields["source"]; isObject(raw) {
		var src Source
		if json.Unmarshal(raw, &src) == nil {
			out.Source = &src
		}
	}
	if raw := fields["metadata"]; isObject(raw) {
		if json.Unmarshal(raw, &out.Metadata) != nil {
			out.Metadata = nil
		}
	}
	*it = out
	return nil
}

// LooseInt reads a JSON number or a numeric string as an int.
func LooseInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var s string
	if raw[0] == '"' {
		if json.Unmarshal(raw, &s) != nil {
			return 0, false
		}
	} else {
		s = string(raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return ""
		}
		return s
	case '{', '[':
		return ""
	}
	return string(raw)
}

func looseBool(raw json.RawMessage) bool {
	switch strings.ToLower(strings.Trim(string(bytes.TrimSpace(raw)), `"`)) {
	case "true", "1":
		return true
	}
	return false
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func parseTimestamp(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00", "2006-01-02"} {
		if ts, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// UnmarshalJSON tolerates missing or malformed timestamps.
func (m *DocumentMeta) UnmarshalJSON(data []byte) error {
	var raw struct {
		CreatedAt json.RawMessage `json:"createdAt"`
		UpdatedAt json.RawMessage `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.CreatedAt = parseTimestamp(raw.CreatedAt)
	m.UpdatedAt = parseTimestamp(raw.UpdatedAt)
	return nil
}
