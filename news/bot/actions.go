package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/newsbot/core/telegram/callbacks"
	"github.com/m3rciful/newsbot/core/telegram/state"
	"github.com/m3rciful/newsbot/news"
)

// ErrUnknownAction reports a callback token outside the grammar.
var ErrUnknownAction = errors.New("bot: unknown action")

// Kind tags an Action.
type Kind int

const (
	KindNoop Kind = iota
	KindMenu
	KindFilter
	KindPage
	KindView
	KindBackToList
	KindPublish
	KindUnpublish
	KindMain
	KindDelete
	KindRestore
	KindEdit
	KindSave
	KindCancel
	KindAddParagraph
	KindClearText
)

// Menu screens reachable through menu_<action>.
const (
	MenuMain   = "main"
	MenuList   = "list"
	MenuSearch = "search"
	MenuStats  = "stats"
	MenuHelp   = "help"
)

var menus = map[string]bool{MenuMain: true, MenuList: true, MenuSearch: true, MenuStats: true, MenuHelp: true}

// itemPrefixes maps the single-id token families to their kinds. Compound
// prefixes are matched before "edit".
var itemPrefixes = []struct {
	prefix string
	kind   Kind
}{
	{"save_edit", KindSave},
	{"cancel_edit", KindCancel},
	{"add_paragraph", KindAddParagraph},
	{"clear_text", KindClearText},
	{"publish", KindPublish},
	{"unpublish", KindUnpublish},
	{"main", KindMain},
	{"delete", KindDelete},
	{"restore", KindRestore},
	{"view", KindView},
}

// Action is a parsed callback token. Only the fields of its Kind are set.
type Action struct {
	Kind   Kind
	Menu   string
	Filter news.Filter
	Page   int
	ID     int
	Mode   state.Mode
}

// ParseAction decodes a callback token.
func ParseAction(data string) (Action, error) {
	data = strings.TrimSpace(data)
	switch data {
	case "noop":
		return Action{Kind: KindNoop}, nil
	case "back_to_list":
		return Action{Kind: KindBackToList}, nil
	}

	if rest, ok := callbacks.TrimPrefix(data, "menu"); ok {
		if menus[rest] {
			return Action{Kind: KindMenu, Menu: rest}, nil
		}
		return Action{}, unknown(data)
	}
	if rest, ok := callbacks.TrimPrefix(data, "filter"); ok {
		if f, ok := news.ParseFilter(rest); ok && string(f) == rest {
			return Action{Kind: KindFilter, Filter: f}, nil
		}
		return Action{}, unknown(data)
	}
	if strings.HasPrefix(data, "page"+callbacks.Sep) {
		page, raw, err := callbacks.PayloadIntAndString(data, "page")
		if err != nil {
			return Action{}, unknown(data)
		}
		f, ok := news.ParseFilter(raw)
		if !ok || string(f) != raw {
			return Action{}, unknown(data)
		}
		return Action{Kind: KindPage, Page: page, Filter: f}, nil
	}
	for _, p := range itemPrefixes {
		if !strings.HasPrefix(data, p.prefix+callbacks.Sep) {
			continue
		}
		id, err := callbacks.PayloadInt(data, p.prefix)
		if err != nil {
			return Action{}, unknown(data)
		}
		return Action{Kind: p.kind, ID: id}, nil
	}
	if strings.HasPrefix(data, "edit"+callbacks.Sep) {
		parts, err := callbacks.PayloadParts(data, "edit", 2)
		if err != nil || len(parts) != 2 {
			return Action{}, unknown(data)
		}
		mode, ok := state.ParseMode(parts[0])
		if !ok || string(mode) != parts[0] {
			return Action{}, unknown(data)
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil || id <= 0 || strconv.Itoa(id) != parts[1] {
			return Action{}, unknown(data)
		}
		return Action{Kind: KindEdit, Mode: mode, ID: id}, nil
	}
	return Action{}, unknown(data)
}

func unknown(data string) error {
	return fmt.Errorf("%w: %q", ErrUnknownAction, data)
}

// Token encodes a as a callback token.
func (a Action) Token() string {
	id := strconv.Itoa(a.ID)
	switch a.Kind {
	case KindNoop:
		return "noop"
	case KindMenu:
		return callbacks.Token("menu", a.Menu)
	case KindFilter:
		return callbacks.Token("filter", string(a.Filter))
	case KindPage:
		return callbacks.Token("page", strconv.Itoa(a.Page), string(a.Filter))
	case KindBackToList:
		return "back_to_list"
	case KindEdit:
		return callbacks.Token("edit", string(a.Mode), id)
	}
	for _, p := range itemPrefixes {
		if p.kind == a.Kind {
			return callbacks.Token(p.prefix, id)
		}
	}
	return "noop"
}

// Noop is the inert pagination label.
func Noop() Action { return Action{Kind: KindNoop} }

// Menu opens a menu screen.
func Menu(name string) Action { return Action{Kind: KindMenu, Menu: name} }

// FilterBy lists items matching f from the first page.
func FilterBy(f news.Filter) Action { return Action{Kind: KindFilter, Filter: f} }

// PageOf lists page n of f.
func PageOf(n int, f news.Filter) Action { return Action{Kind: KindPage, Page: n, Filter: f} }

// View shows one item.
func View(id int) Action { return Action{Kind: KindView, ID: id} }

// BackToList returns to the last listing.
func BackToList() Action { return Action{Kind: KindBackToList} }

// Edit enters mode for item id.
func Edit(mode state.Mode, id int) Action { return Action{Kind: KindEdit, Mode: mode, ID: id} }

// OnItem builds a single-id action such as publish or save.
func OnItem(kind Kind, id int) Action { return Action{Kind: kind, ID: id} }
