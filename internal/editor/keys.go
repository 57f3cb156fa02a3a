// Package editor is the compose-box key handling: a transition table over
// the cursor context and the pressed key, and a line buffer applying it.
package editor

// Context classifies where the cursor is.
type Context int

const (
	Default Context = iota
	InListItem
	InCodeBlock
)

func (c Context) String() string {
	switch c {
	case InListItem:
		return "list"
	case InCodeBlock:
		return "code"
	}
	return "default"
}

type Key int

const (
	Enter Key = iota
	ShiftEnter
	Backspace
	Tab
)

type Action int

const (
	Ignore Action = iota
	Submit
	Newline
	DeleteBack
	ContinueList
	ExitList
	Indent
	InsertIndent
)

func (a Action) String() string {
	return [...]string{"ignore", "submit", "newline", "delete-back", "continue-list", "exit-list", "indent", "insert-indent"}[a]
}

// LineState is what the list rules need to know about the current item.
type LineState struct {
	EmptyItem   bool // the list item has no content after its marker
	AtItemStart bool // the cursor sits right after the marker
}

// Transition maps (context, key) to an action. It is pure; Buffer.Apply performs it.
func Transition(ctx Context, key Key, st LineState) Action {
	switch ctx {
	case InListItem:
		switch key {
		case Enter:
			if st.EmptyItem {
				return ExitList
			}
			return ContinueList
		case ShiftEnter:
			return Newline
		case Backspace:
			if st.AtItemStart {
				return ExitList
			}
			return DeleteBack
		case Tab:
			return Indent
		}
	case InCodeBlock:
		switch key {
		case Enter, ShiftEnter:
			return Newline
		case Backspace:
			return DeleteBack
		case Tab:
			return InsertIndent
		}
	default:
		switch key {
		case Enter:
			return Submit
		case ShiftEnter:
			return Newline
		case Backspace:
			return DeleteBack
		case Tab:
			return Ignore
		}
	}
	return Ignore
}
