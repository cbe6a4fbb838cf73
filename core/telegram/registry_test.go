package telegram

import (
	"context"
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/telegram/commands"
)

func noopCommand(context.Context, *tele.Message, string) error { return nil }

func TestRegistryLookupAndList(t *testing.T) {
	r := NewRegistry()
	r.RegisterCommand("/start", commands.Command{Handler: noopCommand, Description: "Start", Aliases: []string{"menu"}})
	r.RegisterCommand("/list", commands.Command{Handler: noopCommand, Description: "List"})
	r.RegisterCommand("/hidden", commands.Command{Handler: noopCommand, Description: "x", Hidden: true})
	r.RegisterCommand("bad", commands.Command{Handler: noopCommand, Description: "x"})
	r.RegisterCommand("/nodesc", commands.Command{Handler: noopCommand})
	r.RegisterCommand("/LIST", commands.Command{Handler: noopCommand, Description: "Duplicate"})

	if key, _, ok := r.LookupCommand("/menu"); !ok || key != "/start" {
		t.Fatalf("alias lookup failed: %q %v", key, ok)
	}
	if _, cmd, ok := r.LookupCommand("LIST"); !ok || cmd.Description != "List" {
		t.Fatalf("lookup must be case-insensitive, accept a missing slash and keep the first registration")
	}
	if _, _, ok := r.LookupCommand("/nodesc"); ok {
		t.Fatalf("invalid command must not register")
	}

	list := r.ListCommands(true)
	if len(list) != 2 || list[0].Text != "list" || list[1].Text != "start" {
		t.Fatalf("unexpected visible commands %+v", list)
	}
	if all := r.ListCommands(false); len(all) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(all))
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in         string
		name, args string
		ok         bool
	}{
		{"/show 12", "/show", "12", true},
		{"/Search@NewsBot  spring  fest ", "/search", "spring  fest", true},
		{"/list", "/list", "", true},
		{"/add\nmore text", "/add", "more text", true},
		{"hello", "", "", false},
		{"/", "", "", false},
		{"/@bot", "", "", false},
	}
	for _, tc := range cases {
		name, args, ok := ParseCommand(tc.in)
		if name != tc.name || args != tc.args || ok != tc.ok {
			t.Fatalf("ParseCommand(%q)=(%q,%q,%v) want (%q,%q,%v)", tc.in, name, args, ok, tc.name, tc.args, tc.ok)
		}
	}
}
