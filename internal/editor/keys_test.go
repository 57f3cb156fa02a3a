package editor

import "testing"

func TestTransitionTable(t *testing.T) {
	plain := LineState{}
	empty := LineState{EmptyItem: true, AtItemStart: true}
	start := LineState{AtItemStart: true}
	cases := []struct {
		ctx  Context
		key  Key
		st   LineState
		want Action
	}{
		{Default, Enter, plain, Submit},
		{Default, ShiftEnter, plain, Newline},
		{Default, Backspace, plain, DeleteBack},
		{Default, Tab, plain, Ignore},

		{InListItem, Enter, plain, ContinueList},
		{InListItem, Enter, empty, ExitList},
		{InListItem, ShiftEnter, plain, Newline},
		{InListItem, Backspace, plain, DeleteBack},
		{InListItem, Backspace, start, ExitList},
		{InListItem, Tab, plain, Indent},

		{InCodeBlock, Enter, plain, Newline},
		{InCodeBlock, ShiftEnter, plain, Newline},
		{InCodeBlock, Backspace, plain, DeleteBack},
		{InCodeBlock, Tab, plain, InsertIndent},
	}
	for _, tc := range cases {
		if got := Transition(tc.ctx, tc.key, tc.st); got != tc.want {
			t.Errorf("%s/%d/%+v: got %s want %s", tc.ctx, tc.key, tc.st, got, tc.want)
		}
	}
}
