package feed

const (
	DefaultNearTop    = 100
	DefaultNearBottom = 150
)

// Metrics are measured viewport values, never estimates: message heights
// vary with text, attachments and reactions.
type Metrics struct {
	ScrollTop    int
	ScrollHeight int
	ClientHeight int
}

// DistanceFromBottom is how far the visible window ends above the content end.
func (m Metrics) DistanceFromBottom() int {
	return m.ScrollHeight - m.ScrollTop - m.ClientHeight
}

// Viewport is the scrollable surface the controller measures and adjusts.
type Viewport interface {
	Metrics() Metrics
	SetScrollTop(top int)
	ScrollToBottom(smooth bool)
}

// Controller keeps a bidirectionally growing list anchored while older pages
// are prepended, and decides when new messages may pull the view down.
//
// Protocol per update: the owner calls OnScroll/LoadOlder, performs the fetch
// when they return true and reports it with LoadFinished; after every content
// change it lays the content out and calls AfterLayout before showing the frame.
type Controller struct {
	vp         Viewport
	nearTop    int
	nearBottom int

	userNearBottom bool
	loading        bool
	restorePending bool
	prevHeight     int

	rendered bool
	firstID  string
}

// NewController creates a controller; non-positive thresholds use the defaults.
func NewController(vp Viewport, nearTop, nearBottom int) *Controller {
	if nearTop <= 0 {
		nearTop = DefaultNearTop
	}
	if nearBottom <= 0 {
		nearBottom = DefaultNearBottom
	}
	return &Controller{
		vp:             vp,
		nearTop:        nearTop,
		nearBottom:     nearBottom,
		userNearBottom: true,
	}
}

// NearBottom reports whether new messages should auto-scroll the view.
func (c *Controller) NearBottom() bool { return c.userNearBottom }

// Loading reports whether a load-older request is outstanding.
func (c *Controller) Loading() bool { return c.loading }

// OnScroll handles a scroll event. It returns true when the caller must start
// fetching older messages.
func (c *Controller) OnScroll(hasMore bool) bool {
	m := c.vp.Metrics()
	c.userNearBottom = m.DistanceFromBottom() < c.nearBottom
	if m.ScrollTop >= c.nearTop {
		return false
	}
	return c.begin(m, hasMore)
}

// LoadOlder is the explicit "load older" affordance. Same effect as the
// automatic trigger without the near-top check.
func (c *Controller) LoadOlder(hasMore bool) bool {
	return c.begin(c.vp.Metrics(), hasMore)
}

func (c *Controller) begin(m Metrics, hasMore bool) bool {
	if c.loading || !hasMore {
		return false
	}
	c.prevHeight = m.ScrollHeight
	c.restorePending = true
	c.loading = true
	return true
}

// LoadFinished clears the loading flag whatever the outcome. added is the
// number of messages prepended; a failed or empty fetch drops the pending
// restore so the next layout is treated as a normal update.
func (c *Controller) LoadFinished(added int, err error) {
	c.loading = false
	if err != nil || added == 0 {
		c.restorePending = false
	}
}

// AfterLayout runs once the new content is laid out and before it is shown.
// ids is the rendered order, oldest first.
//
// While a load is outstanding the restore stays armed: layouts that do not
// carry the older page only rebase the measured height, so messages appended
// below the anchor are not mistaken for prepended content.
func (c *Controller) AfterLayout(ids []string) {
	defer c.remember(ids)

	if c.restorePending {
		if c.loading && !c.prepended(ids) {
			c.prevHeight = c.vp.Metrics().ScrollHeight
			return
		}
		c.restore()
		return
	}

	if c.prepended(ids) {
		return
	}

	if !c.rendered {
		if len(ids) > 0 {
			c.vp.ScrollToBottom(false)
			c.rendered = true
		}
		return
	}

	if c.userNearBottom && !c.loading {
		c.vp.ScrollToBottom(true)
	}
}

// restore shifts the view by the height added above it since prevHeight.
func (c *Controller) restore() {
	m := c.vp.Metrics()
	if delta := m.ScrollHeight - c.prevHeight; delta != 0 {
		c.vp.SetScrollTop(m.ScrollTop + delta)
	}
	c.restorePending = false
}

// prepended reports whether the previous first message still exists but is
// no longer first.
func (c *Controller) prepended(ids []string) bool {
	if c.firstID == "" || len(ids) == 0 || ids[0] == c.firstID {
		return false
	}
	for _, id := range ids[1:] {
		if id == c.firstID {
			return true
		}
	}
	return false
}

func (c *Controller) remember(ids []string) {
	if len(ids) == 0 {
		c.firstID = ""
		return
	}
	c.firstID = ids[0]
}
