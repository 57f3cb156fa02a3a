package editor

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	fence      = "```"
	indentUnit = "  "
	codeIndent = "    "
)

var listMarker = regexp.MustCompile(`^(\s*)([-*]|(\d+)\.)\s`)

// Buffer is a multi-line text with a cursor. Columns count runes.
type Buffer struct {
	lines []string
	row   int
	col   int
}

func NewBuffer() *Buffer {
	return &Buffer{lines: []string{""}}
}

func (b *Buffer) Text() string { return strings.Join(b.lines, "\n") }

// SetText replaces the content and moves the cursor to the end.
func (b *Buffer) SetText(s string) {
	b.lines = strings.Split(s, "\n")
	b.row = len(b.lines) - 1
	b.col = len([]rune(b.lines[b.row]))
}

func (b *Buffer) Reset() { b.SetText("") }

func (b *Buffer) Empty() bool { return strings.TrimSpace(b.Text()) == "" }

// Cursor returns the row and rune column.
func (b *Buffer) Cursor() (row, col int) { return b.row, b.col }

func (b *Buffer) Lines() []string { return append([]string(nil), b.lines...) }

func (b *Buffer) line() []rune { return []rune(b.lines[b.row]) }

func (b *Buffer) setLine(r []rune) { b.lines[b.row] = string(r) }

func (b *Buffer) InsertRune(r rune) {
	if r == '\n' {
		b.newline()
		return
	}
	l := b.line()
	l = append(l[:b.col], append([]rune{r}, l[b.col:]...)...)
	b.setLine(l)
	b.col++
}

func (b *Buffer) InsertString(s string) {
	for _, r := range s {
		b.InsertRune(r)
	}
}

func (b *Buffer) MoveLeft() {
	switch {
	case b.col > 0:
		b.col--
	case b.row > 0:
		b.row--
		b.col = len(b.line())
	}
}

func (b *Buffer) MoveRight() {
	switch {
	case b.col < len(b.line()):
		b.col++
	case b.row < len(b.lines)-1:
		b.row++
		b.col = 0
	}
}

func (b *Buffer) MoveUp() {
	if b.row > 0 {
		b.row--
		b.col = min(b.col, len(b.line()))
	}
}

func (b *Buffer) MoveDown() {
	if b.row < len(b.lines)-1 {
		b.row++
		b.col = min(b.col, len(b.line()))
	}
}

func (b *Buffer) Home() { b.col = 0 }

func (b *Buffer) End() { b.col = len(b.line()) }

// Context classifies the cursor position. A line inside an unclosed fence is
// code even when it looks like a list item.
func (b *Buffer) Context() Context {
	open := false
	for i := 0; i <= b.row; i++ {
		if strings.HasPrefix(strings.TrimSpace(b.lines[i]), fence) {
			if i == b.row && open {
				// The closing fence line itself still belongs to the block.
				return InCodeBlock
			}
			open = !open
		}
	}
	if open {
		return InCodeBlock
	}
	if listMarker.MatchString(b.lines[b.row]) {
		return InListItem
	}
	return Default
}

func (b *Buffer) lineState() LineState {
	m := listMarker.FindStringSubmatch(b.lines[b.row])
	if m == nil {
		return LineState{}
	}
	prefix := len([]rune(m[0]))
	return LineState{
		EmptyItem:   strings.TrimSpace(string(b.line()[prefix:])) == "",
		AtItemStart: b.col == prefix,
	}
}

// Apply runs the transition for key and performs its edit. Submit and Ignore
// leave the buffer unchanged; the caller acts on Submit.
func (b *Buffer) Apply(key Key) Action {
	a := Transition(b.Context(), key, b.lineState())
	switch a {
	case Newline:
		b.newline()
	case DeleteBack:
		b.deleteBack()
	case ContinueList:
		b.continueList()
	case ExitList:
		b.exitList()
	case Indent:
		b.lines[b.row] = indentUnit + b.lines[b.row]
		b.col += len(indentUnit)
	case InsertIndent:
		b.InsertString(codeIndent)
	}
	return a
}

func (b *Buffer) newline() {
	l := b.line()
	head, tail := string(l[:b.col]), string(l[b.col:])
	b.lines[b.row] = head
	b.lines = append(b.lines[:b.row+1], append([]string{tail}, b.lines[b.row+1:]...)...)
	b.row++
	b.col = 0
}

func (b *Buffer) deleteBack() {
	if b.col > 0 {
		l := b.line()
		b.setLine(append(l[:b.col-1], l[b.col:]...))
		b.col--
		return
	}
	if b.row == 0 {
		return
	}
	prev := []rune(b.lines[b.row-1])
	b.lines[b.row-1] = string(prev) + b.lines[b.row]
	b.lines = append(b.lines[:b.row], b.lines[b.row+1:]...)
	b.row--
	b.col = len(prev)
}

// continueList splits the item and starts the next one with the same marker;
// numbered markers increment.
func (b *Buffer) continueList() {
	m := listMarker.FindStringSubmatch(b.lines[b.row])
	indent, marker := m[1], m[2]
	if m[3] != "" {
		n, _ := strconv.Atoi(m[3])
		marker = strconv.Itoa(n+1) + "."
	}
	b.newline()
	prefix := indent + marker + " "
	b.lines[b.row] = prefix + b.lines[b.row]
	b.col = len([]rune(prefix))
}

// exitList strips the marker, keeping the item text.
func (b *Buffer) exitList() {
	m := listMarker.FindStringSubmatch(b.lines[b.row])
	prefix := len([]rune(m[0]))
	l := b.line()
	b.setLine(l[prefix:])
	b.col = max(0, b.col-prefix)
}
