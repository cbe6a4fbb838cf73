package state

import "testing"

func TestUserSessionDefaults(t *testing.T) {
	m := NewMemoryManager()
	s := m.UserSession(1)
	if s.CurrentPage != 1 || s.CurrentFilter != "all" {
		t.Fatalf("unexpected defaults: %+v", s)
	}

	m.UpdateUserSession(1, func(u *UserSession) {
		u.CurrentPage = 3
		u.LastCommand = "search"
	})
	got := m.UserSession(1)
	if got.CurrentPage != 3 || got.LastCommand != "search" {
		t.Fatalf("update not applied: %+v", got)
	}

	got.CurrentPage = 9
	if m.UserSession(1).CurrentPage != 3 {
		t.Fatalf("returned session must be a copy")
	}
}

func TestEditSessionLazyCreate(t *testing.T) {
	m := NewMemoryManager()
	if _, ok := m.LookupEditSession(1, 5); ok {
		t.Fatalf("expected no session")
	}
	s := m.EditSession(1, 5)
	if s.Active() || s.EntityID != 5 {
		t.Fatalf("expected idle session for entity 5, got %+v", s)
	}
	if _, ok := m.LookupEditSession(1, 5); !ok {
		t.Fatalf("expected session to exist after lazy create")
	}
	if _, ok := m.ActiveEditSession(1); ok {
		t.Fatalf("idle session must not be active")
	}
}

func TestEditSessionsAreIsolated(t *testing.T) {
	m := NewMemoryManager()
	m.StartEdit(1, 10, ModeTitle, 100)
	m.StartEdit(1, 20, ModeText, 200)

	m.UpdateEditSession(1, 10, func(s *EditSession) { s.Temp.Title = "first" })
	m.UpdateEditSession(1, 20, func(s *EditSession) {
		s.Temp.Paragraphs = []string{"a", "b"}
		s.Temp.TextSet = true
	})

	a, _ := m.LookupEditSession(1, 10)
	b, _ := m.LookupEditSession(1, 20)
	if a.Temp.Title != "first" || len(a.Temp.Paragraphs) != 0 {
		t.Fatalf("entity 10 contaminated: %+v", a.Temp)
	}
	if b.Temp.Title != "" || len(b.Temp.Paragraphs) != 2 {
		t.Fatalf("entity 20 contaminated: %+v", b.Temp)
	}

	b.Temp.Paragraphs[0] = "changed"
	again, _ := m.LookupEditSession(1, 20)
	if again.Temp.Paragraphs[0] != "a" {
		t.Fatalf("paragraphs must be copied")
	}

	m.ClearEditSession(1, 10)
	if _, ok := m.LookupEditSession(1, 10); ok {
		t.Fatalf("expected session 10 cleared")
	}
	if _, ok := m.LookupEditSession(1, 20); !ok {
		t.Fatalf("session 20 must survive")
	}
}

func TestActiveEditSessionPicksMostRecent(t *testing.T) {
	m := NewMemoryManager()
	m.StartEdit(1, 10, ModeTitle, 0)
	m.StartEdit(1, 20, ModeDate, 0)
	m.StartEdit(2, 30, ModeText, 0)

	s, ok := m.ActiveEditSession(1)
	if !ok || s.EntityID != 20 {
		t.Fatalf("expected entity 20, got %+v ok=%v", s, ok)
	}

	m.StartEdit(1, 10, ModeText, 0)
	s, _ = m.ActiveEditSession(1)
	if s.EntityID != 10 || s.Mode != ModeText {
		t.Fatalf("re-entered session must win, got %+v", s)
	}

	m.ClearUser(1)
	if _, ok := m.ActiveEditSession(1); ok {
		t.Fatalf("expected no session after ClearUser")
	}
	if _, ok := m.ActiveEditSession(2); !ok {
		t.Fatalf("other users must be unaffected")
	}
}

func TestEmpty(t *testing.T) {
	cases := []struct {
		name string
		sess EditSession
		want bool
	}{
		{"title missing", EditSession{Mode: ModeTitle}, true},
		{"title blank", EditSession{Mode: ModeTitle, Temp: TempData{Title: "  "}}, true},
		{"title set", EditSession{Mode: ModeTitle, Temp: TempData{Title: "x"}}, false},
		{"text unset", EditSession{Mode: ModeText}, true},
		{"text cleared", EditSession{Mode: ModeText, Temp: TempData{TextSet: true}}, true},
		{"text set", EditSession{Mode: ModeText, Temp: TempData{TextSet: true, Paragraphs: []string{"p"}}}, false},
		{"date unset", EditSession{Mode: ModeDate}, true},
		{"date set", EditSession{Mode: ModeDate, Temp: TempData{Date: "01.01.2025"}}, false},
		{"images", EditSession{Mode: ModeImages}, true},
	}
	for _, tc := range cases {
		if got := tc.sess.Empty(); got != tc.want {
			t.Fatalf("%s: Empty()=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode(" Title "); !ok || m != ModeTitle {
		t.Fatalf("expected title mode, got %q %v", m, ok)
	}
	if _, ok := ParseMode("body"); ok {
		t.Fatalf("expected unknown mode")
	}
}
