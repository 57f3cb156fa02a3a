package feed

import "github.com/crmchat/internal/model"

// VisibleThreshold is the share of a message that must be on screen before it
// counts as read.
const VisibleThreshold = 0.5

// Visibility is one intersection sample: how much of a message is on screen.
type Visibility struct {
	MessageID string
	Ratio     float64
}

type target struct {
	mine     bool
	readable bool
}

// Observer decides which messages to mark as read as they scroll into view.
// Each eligible message is emitted at most once per session.
type Observer struct {
	viewerID string
	targets  map[string]target
	seen     *seenSet
}

func NewObserver(viewerID string) *Observer {
	return &Observer{
		viewerID: viewerID,
		targets:  make(map[string]target),
		seen:     newSeenSet(0),
	}
}

// Sync re-subscribes the observer to the current message collection.
// Targets not in messages are dropped; the seen set is kept.
func (o *Observer) Sync(messages []model.Message, channelWide []model.ReadReceipt) {
	targets := make(map[string]target, len(messages))
	for i := range messages {
		m := &messages[i]
		if !m.Confirmed() || m.ID == "" {
			continue
		}
		mine := m.SenderID == o.viewerID
		targets[m.ID] = target{
			mine:     mine,
			readable: !mine && !m.IsDeleted && !HasReadBy(m, channelWide, o.viewerID),
		}
	}
	o.targets = targets
}

// Observe consumes intersection samples and returns the ids to mark as read.
func (o *Observer) Observe(entries []Visibility) []string {
	var out []string
	for _, e := range entries {
		if e.Ratio < VisibleThreshold {
			continue
		}
		t, ok := o.targets[e.MessageID]
		if !ok || !t.readable {
			continue
		}
		if o.seen.Add(e.MessageID) {
			out = append(out, e.MessageID)
		}
	}
	return out
}

// Forget makes id eligible again, for a mark-read request that failed.
func (o *Observer) Forget(id string) { o.seen.Remove(id) }

// Seen reports whether id was already emitted.
func (o *Observer) Seen(id string) bool { return o.seen.Has(id) }

// Span is the line range [Start, End) a rendered message occupies.
type Span struct {
	MessageID string
	Start     int
	End       int
}

// LineVisibility computes visibility ratios for a line-addressed viewport
// showing lines [offset, offset+height).
func LineVisibility(spans []Span, offset, height int) []Visibility {
	top, bottom := offset, offset+height
	out := make([]Visibility, 0, 8)
	for _, s := range spans {
		size := s.End - s.Start
		if size <= 0 {
			continue
		}
		lo, hi := max(s.Start, top), min(s.End, bottom)
		if hi <= lo {
			continue
		}
		out = append(out, Visibility{MessageID: s.MessageID, Ratio: float64(hi-lo) / float64(size)})
	}
	return out
}
