package bot

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/telegram/format"
	"github.com/m3rciful/newsbot/core/telegram/helpers"
	"github.com/m3rciful/newsbot/core/telegram/keyboard"
	"github.com/m3rciful/newsbot/core/telegram/state"
	"github.com/m3rciful/newsbot/news"
	"github.com/m3rciful/newsbot/news/store"
)

const (
	emojiSuccess  = "✅"
	emojiError    = "❌"
	emojiWarning  = "⚠️"
	emojiInfo     = "ℹ️"
	emojiEdit     = "✏️"
	emojiDelete   = "🗑"
	emojiSave     = "💾"
	emojiPublish  = "📢"
	emojiDraft    = "📝"
	emojiMain     = "🏠"
	emojiImage    = "🖼"
	emojiText     = "📄"
	emojiDate     = "📅"
	emojiBack     = "🔙"
	emojiNext     = "➡️"
	emojiPrev     = "⬅️"
	emojiSearch   = "🔍"
	emojiList     = "📋"
	emojiHelp     = "❓"
	emojiSettings = "⚙️"
)

const (
	buttonTitleLen    = 24
	searchTextLimit   = 10
	searchButtonLimit = 5
)

func btn(text string, a Action) keyboard.Button {
	return keyboard.Data(text, a.Token())
}

func backToMenu() *tele.ReplyMarkup {
	return keyboard.Rows([]keyboard.Button{btn(emojiBack+" Back", Menu(MenuMain))})
}

func mainMenuView() (string, *tele.ReplyMarkup) {
	text := strings.Join([]string{
		emojiHelp + " *News management*",
		"",
		"Choose an action:",
		"",
		emojiList + " *List* - browse all stories",
		emojiSearch + " *Search* - find by title and text",
		"📊 *Statistics* - story counts",
		"",
		"Or forward a post with text or photos to create a draft.",
	}, "\n")
	markup := keyboard.Rows(
		[]keyboard.Button{
			btn(emojiList+" All stories", Menu(MenuList)),
			btn(emojiSearch+" Search", Menu(MenuSearch)),
		},
		[]keyboard.Button{
			btn(emojiPublish+" Published", FilterBy(news.FilterPublished)),
			btn(emojiDraft+" Drafts", FilterBy(news.FilterDraft)),
		},
		[]keyboard.Button{
			btn(emojiMain+" On main", FilterBy(news.FilterMain)),
			btn(emojiDelete+" Deleted", FilterBy(news.FilterDeleted)),
		},
		[]keyboard.Button{
			btn(emojiSettings+" Statistics", Menu(MenuStats)),
			btn(emojiHelp+" Help", Menu(MenuHelp)),
		},
	)
	return text, markup
}

func helpView() (string, *tele.ReplyMarkup) {
	text := strings.Join([]string{
		"*Bot help*",
		"",
		emojiList + " *List* - browse stories by filter",
		emojiSearch + " *Search* - find by title and text",
		"📊 *Statistics* - story counts",
		"",
		"*Commands:*",
		"/menu - main menu",
		"/list \\[filter] - list stories",
		"/show <id> - show a story",
		"/search <text> - search",
		"/stats - statistics",
		"",
		"*Filters:* all, published, draft, main, deleted",
	}, "\n")
	return text, backToMenu()
}

func filterKeyboard() *tele.ReplyMarkup {
	return keyboard.Grid(2,
		btn(emojiList+" All", FilterBy(news.FilterAll)),
		btn(emojiPublish+" Published", FilterBy(news.FilterPublished)),
		btn(emojiDraft+" Drafts", FilterBy(news.FilterDraft)),
		btn(emojiDelete+" Deleted", FilterBy(news.FilterDeleted)),
		btn(emojiMain+" On main", FilterBy(news.FilterMain)),
		btn(emojiBack+" Back", Menu(MenuMain)),
	)
}

func statusIcon(s news.Status) string {
	switch s {
	case news.StatusPublished:
		return emojiPublish
	case news.StatusDraft:
		return emojiDraft
	case news.StatusDeleted:
		return emojiDelete
	}
	return ""
}

// shortLine renders an item as a two-line list entry.
func shortLine(it news.Item) string {
	icons := statusIcon(it.Status)
	if it.ShowOnMain {
		icons += emojiMain
	}
	return fmt.Sprintf("%s *#%d* %s %s\n%s", emojiList, it.ID, icons, it.Date, format.MD(it.Title))
}

func itemButtonLabel(it news.Item) string {
	return fmt.Sprintf("#%d %s", it.ID, format.Truncate(it.Title, buttonTitleLen))
}

func listView(p store.Page, filter news.Filter) (string, *tele.ReplyMarkup) {
	if p.Total == 0 {
		text := strings.Join([]string{
			emojiWarning + " *No stories found*",
			"",
			"Filter: " + string(filter),
		}, "\n")
		return text, filterKeyboard()
	}

	lines := make([]string, 0, len(p.Items))
	rows := make([][]keyboard.Button, 0, len(p.Items)+3)
	for _, it := range p.Items {
		lines = append(lines, shortLine(it))
		rows = append(rows, []keyboard.Button{btn(itemButtonLabel(it), View(it.ID))})
	}

	nav := []keyboard.Button{}
	if p.Page > 1 {
		nav = append(nav, btn(emojiPrev, PageOf(p.Page-1, filter)))
	}
	nav = append(nav, btn(fmt.Sprintf("%d/%d", p.Page, p.Pages), Noop()))
	if p.Page < p.Pages {
		nav = append(nav, btn(emojiNext, PageOf(p.Page+1, filter)))
	}
	rows = append(rows, nav,
		[]keyboard.Button{
			btn(emojiList+" All", FilterBy(news.FilterAll)),
			btn(emojiPublish+" Published", FilterBy(news.FilterPublished)),
			btn(emojiDraft+" Drafts", FilterBy(news.FilterDraft)),
		},
		[]keyboard.Button{btn(emojiBack+" Main menu", Menu(MenuMain))},
	)

	text := strings.Join([]string{
		emojiList + " *Stories*",
		fmt.Sprintf("Filter: %s | Page %d/%d", filter, p.Page, p.Pages),
		"Total: " + strconv.Itoa(p.Total),
		"",
		strings.Join(lines, "\n\n"),
	}, "\n")
	return text, keyboard.Rows(rows...)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func paragraphLines(text news.Paragraphs) []string {
	out := make([]string, 0, len(text))
	for i, p := range text {
		line := format.MD(p.Text)
		if p.URL != "" {
			line += " (" + format.MD(p.URL) + ")"
		}
		out = append(out, fmt.Sprintf("%d. %s", i+1, line))
	}
	return out
}

func itemView(it news.Item) (string, *tele.ReplyMarkup) {
	parts := []string{
		fmt.Sprintf("%s *STORY #%d*", emojiList, it.ID),
		"",
		"*📌 Title:* " + format.MD(it.Title),
		"*📅 Date:* " + it.Date,
		"*📊 Status:* " + string(it.Status),
		"*🏠 On main:* " + yesNo(it.ShowOnMain),
		fmt.Sprintf("*🖼 Images:* %d", len(it.Image)),
		fmt.Sprintf("*📝 Paragraphs:* %d", len(it.Text)),
		"",
		"*Text:*",
	}
	parts = append(parts, paragraphLines(it.Text)...)
	if it.Source != nil {
		parts = append(parts, "", "*Source:* Telegram")
	}
	return strings.Join(parts, "\n"), itemKeyboard(it)
}

func itemKeyboard(it news.Item) *tele.ReplyMarkup {
	var status []keyboard.Button
	switch it.Status {
	case news.StatusDraft:
		status = append(status, btn(emojiPublish+" Publish", OnItem(KindPublish, it.ID)))
	case news.StatusPublished:
		status = append(status, btn(emojiDraft+" To drafts", OnItem(KindUnpublish, it.ID)))
	}
	if it.Status != news.StatusDeleted {
		label := emojiMain + " To main"
		if it.ShowOnMain {
			label = emojiMain + " Off main"
		}
		status = append(status, btn(label, OnItem(KindMain, it.ID)))
	}

	var tail []keyboard.Button
	if it.Status == news.StatusDeleted {
		tail = append(tail, btn(emojiSave+" Restore", OnItem(KindRestore, it.ID)))
	} else {
		tail = append(tail, btn(emojiDelete+" Delete", OnItem(KindDelete, it.ID)))
	}
	tail = append(tail, btn(emojiBack+" To list", BackToList()))

	return keyboard.Rows(
		status,
		[]keyboard.Button{
			btn(emojiEdit+" Title", Edit(state.ModeTitle, it.ID)),
			btn(emojiText+" Text", Edit(state.ModeText, it.ID)),
		},
		[]keyboard.Button{
			btn(emojiDate+" Date", Edit(state.ModeDate, it.ID)),
			btn(emojiImage+" Photos", Edit(state.ModeImages, it.ID)),
		},
		tail,
	)
}

func editKeyboard(id int, mode state.Mode) *tele.ReplyMarkup {
	var rows [][]keyboard.Button
	if mode == state.ModeText {
		rows = append(rows, []keyboard.Button{
			btn("➕ Add paragraph", OnItem(KindAddParagraph, id)),
			btn("✖️ Clear all", OnItem(KindClearText, id)),
		})
	}
	rows = append(rows, []keyboard.Button{
		btn(emojiSave+" Save", OnItem(KindSave, id)),
		btn(emojiBack+" Cancel", OnItem(KindCancel, id)),
	})
	return keyboard.Rows(rows...)
}

func editPrompt(it news.Item, mode state.Mode) (string, *tele.ReplyMarkup) {
	var lines []string
	switch mode {
	case state.ModeTitle:
		lines = []string{
			emojiEdit + " *Editing title*",
			"",
			"Current title:",
			"\"" + format.MD(it.Title) + "\"",
			"",
			"Send the new title:",
		}
	case state.ModeText:
		lines = []string{
			emojiText + " *Editing text*",
			"",
			fmt.Sprintf("Current text (%d paragraphs):", len(it.Text)),
		}
		lines = append(lines, paragraphLines(it.Text)...)
		lines = append(lines,
			"",
			"*Commands:*",
			"• Send new text (blank lines separate paragraphs)",
			"• /add - append a paragraph",
			"• /clear - clear everything",
			"• /cancel - cancel",
		)
	case state.ModeDate:
		lines = []string{
			emojiDate + " *Editing date*",
			"",
			"Current date: " + it.Date,
			"",
			"Send the new date as *DD.MM.YYYY*:",
		}
	case state.ModeImages:
		lines = []string{
			emojiImage + " *Editing photos*",
			"",
			fmt.Sprintf("Current photos: %d", len(it.Image)),
			"",
			"*Commands:*",
			"• Send a photo to add it",
			"• /clear - remove all photos",
			"• /done - finish",
		}
	}
	return strings.Join(lines, "\n"), editKeyboard(it.ID, mode)
}

func (b *Bot) statsView(st store.Stats) (string, *tele.ReplyMarkup) {
	text := strings.Join([]string{
		emojiSettings + " *Story statistics*",
		"",
		fmt.Sprintf("📊 *Total:* %d", st.Total),
		fmt.Sprintf("📢 *Published:* %d", st.Published),
		fmt.Sprintf("📝 *Drafts:* %d", st.Drafts),
		fmt.Sprintf("🗑 *Deleted:* %d", st.Deleted),
		fmt.Sprintf("🏠 *On main:* %d", st.OnMain),
		fmt.Sprintf("🖼 *With photos:* %d", st.WithImages),
		"",
		"📅 Last update: " + helpers.FormatDateTime(st.UpdatedAt, b.opts.Location),
	}, "\n")
	return text, backToMenu()
}

func searchView(query string, results []news.Item) (string, *tele.ReplyMarkup) {
	if len(results) == 0 {
		return fmt.Sprintf("%s Nothing found for \"%s\"", emojiWarning, format.MD(query)), backToMenu()
	}
	shown := results
	if len(shown) > searchTextLimit {
		shown = shown[:searchTextLimit]
	}
	lines := []string{
		fmt.Sprintf("%s *Search results:* \"%s\"", emojiSearch, format.MD(query)),
		"Found: " + strconv.Itoa(len(results)),
		"",
	}
	for _, it := range shown {
		lines = append(lines, shortLine(it))
	}

	buttons := results
	if len(buttons) > searchButtonLimit {
		buttons = buttons[:searchButtonLimit]
	}
	rows := make([][]keyboard.Button, 0, len(buttons)+1)
	for _, it := range buttons {
		rows = append(rows, []keyboard.Button{btn(itemButtonLabel(it), View(it.ID))})
	}
	rows = append(rows, []keyboard.Button{btn(emojiBack+" Back", Menu(MenuMain))})
	return strings.Join(lines, "\n"), keyboard.Rows(rows...)
}

func notFoundText(id int) string {
	return fmt.Sprintf("%s News #%d not found", emojiError, id)
}
