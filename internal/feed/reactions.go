package feed

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/crmchat/internal/model"
)

// FallbackEmoji replaces emoji values that cannot be a glyph.
const FallbackEmoji = "👍"

// maxEmojiRunes is the longest value still treated as a glyph.
const maxEmojiRunes = 10

var uuidShape = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// NormalizeEmoji coerces missing, overlong or identifier-looking values to
// FallbackEmoji. Upstream sometimes leaks a reaction id into the emoji field.
func NormalizeEmoji(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxEmojiRunes || uuidShape.MatchString(s) {
		return FallbackEmoji
	}
	return s
}

// GroupReactions collapses reaction events into per-glyph groups ordered by
// count descending, then glyph ascending. Users keep arrival order.
func GroupReactions(events []model.ReactionEvent, viewerID string) []model.GroupedReaction {
	if len(events) == 0 {
		return nil
	}
	byEmoji := make(map[string]*model.GroupedReaction, len(events))
	for _, ev := range events {
		emoji := NormalizeEmoji(ev.Emoji)
		g, ok := byEmoji[emoji]
		if !ok {
			g = &model.GroupedReaction{Emoji: emoji}
			byEmoji[emoji] = g
		}
		g.Count++
		g.Users = append(g.Users, model.ReactionUser{
			ReactionID: ev.ID,
			UserID:     ev.UserID,
			Username:   ev.Username,
		})
		if viewerID != "" && ev.UserID == viewerID {
			g.ReactedByViewer = true
		}
	}

	groups := make([]model.GroupedReaction, 0, len(byEmoji))
	for _, g := range byEmoji {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Emoji < groups[j].Emoji
	})
	return groups
}
