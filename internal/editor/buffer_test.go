package editor

import (
	"reflect"
	"testing"
)

func typed(s string) *Buffer {
	b := NewBuffer()
	b.SetText(s)
	return b
}

func TestContext(t *testing.T) {
	cases := []struct {
		text string
		want Context
	}{
		{"hello", Default},
		{"- milk", InListItem},
		{"  * eggs", InListItem},
		{"12. step", InListItem},
		{"-not a list", Default},
		{"```go\nfmt.Println()", InCodeBlock},
		{"```\n- looks like a list", InCodeBlock},
		{"```\ncode\n```", InCodeBlock},
		{"```\ncode\n```\nafter", Default},
	}
	for _, tc := range cases {
		if got := typed(tc.text).Context(); got != tc.want {
			t.Errorf("%q: got %s want %s", tc.text, got, tc.want)
		}
	}
}

func TestEnterSubmitsPlainText(t *testing.T) {
	b := typed("hello")
	if a := b.Apply(Enter); a != Submit {
		t.Fatalf("got %s", a)
	}
	if b.Text() != "hello" {
		t.Fatalf("Submit must not edit, got %q", b.Text())
	}
	if a := b.Apply(ShiftEnter); a != Newline || b.Text() != "hello\n" {
		t.Fatalf("ShiftEnter: %s %q", a, b.Text())
	}
}

func TestListContinuationAndExit(t *testing.T) {
	b := typed("1. call client")
	if a := b.Apply(Enter); a != ContinueList {
		t.Fatalf("got %s", a)
	}
	b.InsertString("send offer")
	if a := b.Apply(Enter); a != ContinueList {
		t.Fatalf("got %s", a)
	}
	if got, want := b.Lines(), []string{"1. call client", "2. send offer", "3. "}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
	if a := b.Apply(Enter); a != ExitList {
		t.Fatalf("enter on empty item: got %s", a)
	}
	if got := b.Lines()[2]; got != "" {
		t.Fatalf("marker not removed: %q", got)
	}
	if b.Context() != Default || b.Apply(Enter) != Submit {
		t.Fatalf("after exit the next Enter submits")
	}
}

func TestBackspaceAtItemStartExitsList(t *testing.T) {
	b := typed("- task")
	b.Home()
	for i := 0; i < 2; i++ {
		b.MoveRight()
	}
	if a := b.Apply(Backspace); a != ExitList {
		t.Fatalf("got %s", a)
	}
	if b.Text() != "task" {
		t.Fatalf("got %q", b.Text())
	}
	if _, col := b.Cursor(); col != 0 {
		t.Fatalf("cursor col %d", col)
	}
}

func TestTabInListAndCode(t *testing.T) {
	b := typed("- item")
	if a := b.Apply(Tab); a != Indent || b.Text() != "  - item" {
		t.Fatalf("list tab: %s %q", a, b.Text())
	}
	b = typed("```\nx")
	b.Home()
	if a := b.Apply(Tab); a != InsertIndent || b.Text() != "```\n    x" {
		t.Fatalf("code tab: %s %q", a, b.Text())
	}
	if a := b.Apply(Enter); a != Newline {
		t.Fatalf("code enter: %s", a)
	}
	if a := typed("plain").Apply(Tab); a != Ignore {
		t.Fatalf("default tab: %s", a)
	}
}

func TestDeleteBackJoinsLines(t *testing.T) {
	b := typed("ab\ncd")
	b.Home()
	if a := b.Apply(Backspace); a != DeleteBack || b.Text() != "abcd" {
		t.Fatalf("%s %q", a, b.Text())
	}
	if row, col := b.Cursor(); row != 0 || col != 2 {
		t.Fatalf("cursor %d,%d", row, col)
	}
	b = typed("")
	b.Apply(Backspace)
	if b.Text() != "" {
		t.Fatalf("backspace on empty buffer changed it")
	}
}

func TestMultibyteEditing(t *testing.T) {
	b := typed("привет")
	b.MoveLeft()
	b.Apply(Backspace)
	b.InsertRune('ё')
	if b.Text() != "привёт" {
		t.Fatalf("got %q", b.Text())
	}
}
