package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/newsbot/core/telegram/state"
	"github.com/m3rciful/newsbot/news"
)

func TestActionRoundTrip(t *testing.T) {
	actions := []Action{
		Noop(),
		Menu(MenuMain),
		Menu(MenuList),
		Menu(MenuSearch),
		Menu(MenuStats),
		Menu(MenuHelp),
		FilterBy(news.FilterAll),
		FilterBy(news.FilterPublished),
		FilterBy(news.FilterDraft),
		FilterBy(news.FilterDeleted),
		FilterBy(news.FilterMain),
		PageOf(3, news.FilterPublished),
		View(7),
		BackToList(),
		OnItem(KindPublish, 1),
		OnItem(KindUnpublish, 2),
		OnItem(KindMain, 3),
		OnItem(KindDelete, 4),
		OnItem(KindRestore, 5),
		Edit(state.ModeTitle, 6),
		Edit(state.ModeText, 7),
		Edit(state.ModeDate, 8),
		Edit(state.ModeImages, 9),
		OnItem(KindSave, 10),
		OnItem(KindCancel, 11),
		OnItem(KindAddParagraph, 12),
		OnItem(KindClearText, 13),
	}
	for _, a := range actions {
		token := a.Token()
		assert.LessOrEqual(t, len(token), 64, token)
		got, err := ParseAction(token)
		require.NoError(t, err, token)
		assert.Equal(t, a, got, token)
	}
}

func TestParseActionTokens(t *testing.T) {
	cases := map[string]Action{
		"menu_main":      {Kind: KindMenu, Menu: MenuMain},
		"main_12":        {Kind: KindMain, ID: 12},
		"page_2_draft":   {Kind: KindPage, Page: 2, Filter: news.FilterDraft},
		"edit_images_5":  {Kind: KindEdit, Mode: state.ModeImages, ID: 5},
		"save_edit_5":    {Kind: KindSave, ID: 5},
		"unpublish_9":    {Kind: KindUnpublish, ID: 9},
		"clear_text_3":   {Kind: KindClearText, ID: 3},
		"\fback_to_list": {Kind: KindBackToList},
		"  view_4  ":     {Kind: KindView, ID: 4},
	}
	for token, want := range cases {
		got, err := ParseAction(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}
}

func TestParseActionRejectsUnknown(t *testing.T) {
	tokens := []string{
		"",
		"menu_settings",
		"filter_archived",
		"page_x_all",
		"page_0_all",
		"page_2",
		"view_",
		"view_abc",
		"delete_-1",
		"edit_body_3",
		"edit_title",
		"edit_title_x",
		"save_edit_",
		"launch_3",
		"noop_1",
	}
	for _, token := range tokens {
		_, err := ParseAction(token)
		if !errors.Is(err, ErrUnknownAction) {
			t.Fatalf("%q: expected ErrUnknownAction, got %v", token, err)
		}
	}
}
