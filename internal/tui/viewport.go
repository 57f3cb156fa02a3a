package tui

import (
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/crmchat/internal/feed"
)

// pxPerLine converts the pixel thresholds of the shared config into
// terminal lines.
const pxPerLine = 20

// feedViewport exposes a bubbles viewport as a feed.Viewport. One terminal
// line is one scroll unit, so heights are exact line counts.
type feedViewport struct {
	vp *viewport.Model
}

func (f feedViewport) Metrics() feed.Metrics {
	return feed.Metrics{
		ScrollTop:    f.vp.YOffset,
		ScrollHeight: f.vp.TotalLineCount(),
		ClientHeight: f.vp.Height,
	}
}

func (f feedViewport) SetScrollTop(top int) {
	f.vp.SetYOffset(top)
}

// ScrollToBottom ignores smooth: a terminal redraws the whole frame anyway.
func (f feedViewport) ScrollToBottom(smooth bool) {
	f.vp.GotoBottom()
}

func linesFromPx(px int) int {
	n := px / pxPerLine
	if n < 1 {
		return 1
	}
	return n
}
