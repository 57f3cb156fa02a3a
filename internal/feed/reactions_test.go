package feed

import (
	"reflect"
	"testing"

	"github.com/crmchat/internal/model"
)

func TestGroupReactionsScenario(t *testing.T) {
	events := []model.ReactionEvent{
		{ID: "r1", Emoji: "👍", UserID: "A", Username: "alice"},
		{ID: "r2", Emoji: "👍", UserID: "B", Username: "bob"},
		{ID: "r3", Emoji: "🎉", UserID: "A", Username: "alice"},
	}

	got := GroupReactions(events, "B")
	want := []model.GroupedReaction{
		{
			Emoji: "👍", Count: 2, ReactedByViewer: true,
			Users: []model.ReactionUser{{ReactionID: "r1", UserID: "A", Username: "alice"}, {ReactionID: "r2", UserID: "B", Username: "bob"}},
		},
		{
			Emoji: "🎉", Count: 1,
			Users: []model.ReactionUser{{ReactionID: "r3", UserID: "A", Username: "alice"}},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("groups:\n got %#v\nwant %#v", got, want)
	}
}

func TestGroupReactionsDeterministicOrder(t *testing.T) {
	events := []model.ReactionEvent{
		{ID: "1", Emoji: "c", UserID: "u1"},
		{ID: "2", Emoji: "a", UserID: "u1"},
		{ID: "3", Emoji: "b", UserID: "u1"},
		{ID: "4", Emoji: "b", UserID: "u2"},
		{ID: "5", Emoji: "c", UserID: "u2"},
		{ID: "6", Emoji: "d", UserID: "u3"},
	}
	first := GroupReactions(events, "")
	second := GroupReactions(events, "")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grouping is not deterministic")
	}

	var order []string
	for _, g := range first {
		order = append(order, g.Emoji)
	}
	if want := []string{"b", "c", "a", "d"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order: got %v want %v", order, want)
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Count < first[i].Count {
			t.Fatalf("counts not descending: %v", first)
		}
	}
}

func TestNormalizeEmoji(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", FallbackEmoji},
		{"   ", FallbackEmoji},
		{"0f8fad5b-d9cb-469f-a165-70867728950e", FallbackEmoji},
		{"this-is-way-too-long", FallbackEmoji},
		{"🎉", "🎉"},
		{"👨‍👩‍👧", "👨‍👩‍👧"},
		{" ❤️ ", "❤️"},
	}
	for _, tt := range tests {
		if got := NormalizeEmoji(tt.in); got != tt.want {
			t.Errorf("NormalizeEmoji(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGroupReactionsUUIDGoesToFallback(t *testing.T) {
	events := []model.ReactionEvent{
		{ID: "r1", Emoji: "0F8FAD5B-D9CB-469F-A165-70867728950E", UserID: "A"},
		{ID: "r2", Emoji: FallbackEmoji, UserID: "B"},
	}
	got := GroupReactions(events, "A")
	if len(got) != 1 {
		t.Fatalf("expected a single fallback group, got %#v", got)
	}
	if got[0].Emoji != FallbackEmoji || got[0].Count != 2 || !got[0].ReactedByViewer {
		t.Fatalf("fallback group: %#v", got[0])
	}
}

func TestGroupReactionsEmpty(t *testing.T) {
	if got := GroupReactions(nil, "A"); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}
