package news

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemDecodeCoercesLegacyShapes(t *testing.T) {
	t.Parallel()

	raw := `{"id":3,"title":"  ","text":"single","image":"a.jpg","status":"archived","createdAt":"bogus"}`
	var it Item
	require.NoError(t, json.Unmarshal([]byte(raw), &it))

	now := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
	it = Normalize(it, now)

	assert.Equal(t, DefaultTitle, it.Title)
	assert.Equal(t, []string{"single"}, it.Text.Strings())
	assert.Equal(t, Images{"a.jpg"}, it.Image)
	assert.Equal(t, StatusDraft, it.Status)
	assert.Equal(t, "09.01.2025", it.Date)
	assert.Equal(t, now, it.CreatedAt)
	assert.NotNil(t, it.Metadata)
}

func TestItemDecodeToleratesMistypedFields(t *testing.T) {
	t.Parallel()

	raw := `{"id":"12","title":2024,"text":[1,"two"],"image":{"x":1},"date":null,
		"status":"Published","showOnMain":1,"source":"chat","metadata":[1]}`
	var it Item
	require.NoError(t, json.Unmarshal([]byte(raw), &it))

	assert.Equal(t, 12, it.ID)
	assert.Equal(t, "2024", it.Title)
	assert.Equal(t, []string{"1", "two"}, it.Text.Strings())
	assert.Nil(t, it.Image)
	assert.Empty(t, it.Date)
	assert.Equal(t, StatusPublished, it.Status)
	assert.True(t, it.ShowOnMain)
	assert.Nil(t, it.Source)
	assert.Nil(t, it.Metadata)

	require.Error(t, json.Unmarshal([]byte(`"not an item"`), &it))
	require.Error(t, json.Unmarshal([]byte(`null`), &it))
}

func TestLooseInt(t *testing.T) {
	t.Parallel()

	cases := map[string]int{`5`: 5, `"7"`: 7, `3.0`: 3, `" 4 "`: 4}
	for in, want := range cases {
		got, ok := LooseInt(json.RawMessage(in))
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{``, `null`, `"x"`, `2.5`, `{}`} {
		_, ok := LooseInt(json.RawMessage(in))
		assert.False(t, ok, in)
	}
}

func TestNormalizeMissingTextBecomesSingleEmptyParagraph(t *testing.T) {
	t.Parallel()

	it := Normalize(Item{ID: 1, Text: Paragraphs{}}, time.Now())
	assert.Equal(t, []string{""}, it.Text.Strings())
}

func TestLinkParagraphRoundTrip(t *testing.T) {
	t.Parallel()

	raw := `["intro",{"type":"link","text":"site","url":"https://example.org"}]`
	var ps Paragraphs
	require.NoError(t, json.Unmarshal([]byte(raw), &ps))
	require.Len(t, ps, 2)
	assert.True(t, ps[0].Plain())
	assert.Equal(t, "https://example.org", ps[1].URL)

	out, err := json.Marshal(ps)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestImagesEncoding(t *testing.T) {
	t.Parallel()

	one, err := json.Marshal(Item{Image: Images{"a.jpg"}})
	require.NoError(t, err)
	assert.Contains(t, string(one), `"image":"a.jpg"`)

	many, err := json.Marshal(Item{Image: Images{"a.jpg", "b.jpg"}})
	require.NoError(t, err)
	assert.Contains(t, string(many), `"image":["a.jpg","b.jpg"]`)

	none, err := json.Marshal(Item{})
	require.NoError(t, err)
	assert.NotContains(t, string(none), `"image"`)
}

func TestFilterMatch(t *testing.T) {
	t.Parallel()

	pub := Item{Status: StatusPublished, ShowOnMain: true}
	draft := Item{Status: StatusDraft, ShowOnMain: true}

	assert.True(t, FilterMain.Match(pub))
	assert.False(t, FilterMain.Match(draft))
	assert.True(t, FilterDraft.Match(draft))
	assert.True(t, FilterAll.Match(draft))

	f, ok := ParseFilter(" Published ")
	assert.True(t, ok)
	assert.Equal(t, FilterPublished, f)
	_, ok = ParseFilter("archived")
	assert.False(t, ok)
}

func TestValidDateAndSplit(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidDate("01.02.2024"))
	assert.False(t, ValidDate("1.2.2024"))
	assert.False(t, ValidDate("31.02.2024"))
	assert.False(t, ValidDate("2024-02-01"))

	assert.Equal(t, []string{"Hello", "World"}, SplitParagraphs("Hello\n\nWorld"))
	assert.Equal(t, []string{"a\nb", "c"}, SplitParagraphs("a\nb\r\n  \r\nc\n\n\n"))
}
