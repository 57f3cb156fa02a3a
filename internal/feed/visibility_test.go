package feed

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/crmchat/internal/model"
)

func TestObserverEmitsOncePerMessage(t *testing.T) {
	msgs := []model.Message{
		{ID: "m1", SenderID: "V"},
		{ID: "m2", SenderID: "me"},
		{ID: "m3", SenderID: "V", Receipts: []model.ReadReceipt{{MessageID: "m3", UserID: "me"}}},
		{ID: "m4", SenderID: "V"},
		{ID: "local-1", SenderID: "V", IsOptimistic: true},
	}
	wide := []model.ReadReceipt{{MessageID: "m4", UserID: "me"}}

	o := NewObserver("me")
	o.Sync(msgs, wide)

	entries := []Visibility{
		{MessageID: "m1", Ratio: 0.5},
		{MessageID: "m2", Ratio: 1},
		{MessageID: "m3", Ratio: 1},
		{MessageID: "m4", Ratio: 1},
		{MessageID: "local-1", Ratio: 1},
		{MessageID: "unknown", Ratio: 1},
	}
	if got, want := o.Observe(entries), []string{"m1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("first pass: got %v want %v", got, want)
	}
	if got := o.Observe(entries); len(got) != 0 {
		t.Fatalf("second pass must be empty, got %v", got)
	}

	// Re-subscribing with a new collection keeps the session memory.
	o.Sync(append(msgs, model.Message{ID: "m5", SenderID: "V"}), wide)
	got := o.Observe([]Visibility{{MessageID: "m1", Ratio: 1}, {MessageID: "m5", Ratio: 0.9}})
	if want := []string{"m5"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after resync: got %v want %v", got, want)
	}
}

func TestObserverThreshold(t *testing.T) {
	o := NewObserver("me")
	o.Sync([]model.Message{{ID: "m1", SenderID: "V"}}, nil)
	if got := o.Observe([]Visibility{{MessageID: "m1", Ratio: 0.49}}); len(got) != 0 {
		t.Fatalf("below threshold must not emit: %v", got)
	}
	if o.Seen("m1") {
		t.Fatalf("below threshold must not be remembered")
	}
	if got := o.Observe([]Visibility{{MessageID: "m1", Ratio: 0.5}}); len(got) != 1 {
		t.Fatalf("at threshold must emit: %v", got)
	}
}

func TestObserverDropsRemovedTargets(t *testing.T) {
	o := NewObserver("me")
	o.Sync([]model.Message{{ID: "m1", SenderID: "V"}}, nil)
	o.Sync([]model.Message{{ID: "m2", SenderID: "V"}}, nil)
	if got := o.Observe([]Visibility{{MessageID: "m1", Ratio: 1}}); len(got) != 0 {
		t.Fatalf("removed target must not emit: %v", got)
	}
}

func TestLineVisibility(t *testing.T) {
	spans := []Span{
		{MessageID: "a", Start: 0, End: 4},
		{MessageID: "b", Start: 4, End: 6},
		{MessageID: "c", Start: 6, End: 10},
		{MessageID: "empty", Start: 10, End: 10},
	}
	got := LineVisibility(spans, 2, 6)
	want := []Visibility{{"a", 0.5}, {"b", 1}, {"c", 0.5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSeenSetEvictsOldest(t *testing.T) {
	s := newSeenSet(3)
	for i := 0; i < 5; i++ {
		s.Add(strconv.Itoa(i))
	}
	if s.Len() != 3 {
		t.Fatalf("len: got %d", s.Len())
	}
	if s.Has("0") || s.Has("1") || !s.Has("4") {
		t.Fatalf("eviction order wrong")
	}
	if s.Add("") {
		t.Fatalf("empty id must be ignored")
	}
}

func TestObserverForgetReoffers(t *testing.T) {
	o := NewObserver("me")
	o.Sync([]model.Message{{ID: "m1", SenderID: "V"}, {ID: "m2", SenderID: "V"}}, nil)
	entries := []Visibility{{MessageID: "m1", Ratio: 1}, {MessageID: "m2", Ratio: 1}}

	if got := o.Observe(entries); len(got) != 2 {
		t.Fatalf("first pass: got %v", got)
	}
	o.Forget("m1")
	if o.Seen("m1") || !o.Seen("m2") {
		t.Fatalf("forget must only drop m1")
	}
	if got, want := o.Observe(entries), []string{"m1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after forget: got %v want %v", got, want)
	}
}
