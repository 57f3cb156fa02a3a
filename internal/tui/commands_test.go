package tui

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want Command
	}{
		{"/reply 3", Command{Name: CmdReply, Index: 3, Args: []string{}}},
		{"  /EDIT #2 ", Command{Name: CmdEdit, Index: 2, Args: []string{}}},
		{"/react 1 🔥", Command{Name: CmdReact, Index: 1, Args: []string{"🔥"}}},
		{"/forward c-42", Command{Name: CmdForward, Args: []string{"c-42"}}},
		{"/share 2 c-7 see attached", Command{Name: CmdShare, Index: 2, Args: []string{"c-7"}, Rest: "see attached"}},
		{"/share 2 c-7", Command{Name: CmdShare, Index: 2, Args: []string{"c-7"}}},
		{"/older", Command{Name: CmdOlder, Args: []string{}}},
	}
	for _, tc := range cases {
		got, err := ParseCommand(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%q: got %#v want %#v", tc.in, got, tc.want)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, in := range []string{"/", "/nope", "/reply", "/reply x", "/reply 0", "/react 1", "/older now", "/forward"} {
		if _, err := ParseCommand(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
	if _, err := ParseCommand("hello"); !errors.Is(err, ErrNotCommand) {
		t.Fatalf("plain text: %v", err)
	}
}

func TestEscapedSlash(t *testing.T) {
	if IsCommand("//etc/hosts is here") {
		t.Fatalf("double slash must not be a command")
	}
	if got := Unescape("//etc/hosts"); got != "/etc/hosts" {
		t.Fatalf("got %q", got)
	}
	if got := Unescape("plain"); got != "plain" {
		t.Fatalf("got %q", got)
	}
}
