// Package channel owns the canonical client-side state of one channel: the
// message list, receipts, members, presence and typing users. It merges REST
// responses and realtime events and hands read-only snapshots to the feed.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crmchat/internal/api"
	"github.com/crmchat/internal/feed"
	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
)

const (
	defaultPageSize  = 50
	defaultTypingTTL = 6 * time.Second
)

var ErrNotLoaded = errors.New("channel not loaded")

// Backend is the part of the REST client the store needs.
type Backend interface {
	FetchChannel(ctx context.Context, channelID string) (model.Channel, error)
	FetchMessages(ctx context.Context, channelID, before string, limit int) (api.Page, error)
	FetchReceipts(ctx context.Context, channelID string) ([]model.ReadReceipt, error)
	FetchMembers(ctx context.Context, channelID string) ([]model.ChannelMember, error)
	SendMessage(ctx context.Context, draft model.Draft) (model.Message, error)
	EditMessage(ctx context.Context, messageID string, draft model.Draft) (model.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	MarkMessageRead(ctx context.Context, messageID string) error
	ReactToMessage(ctx context.Context, messageID, emoji string) error
	ForwardMessages(ctx context.Context, messageIDs, targetChannelIDs []string) error
}

type Store struct {
	backend   Backend
	channelID string
	viewer    model.UserPublic
	pageSize  int
	typingTTL time.Duration
	now       func() time.Time

	outbox  *feed.Outbox
	changes chan struct{}

	mu       sync.RWMutex
	loaded   bool
	channel  model.Channel
	messages []model.Message
	receipts []model.ReadReceipt
	members  []model.ChannelMember
	online   map[string]bool
	typing   map[string]model.TypingIndicator
	hasMore  bool
}

func New(backend Backend, channelID string, viewer model.UserPublic, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Store{
		backend:   backend,
		channelID: channelID,
		viewer:    viewer,
		pageSize:  pageSize,
		typingTTL: defaultTypingTTL,
		now:       time.Now,
		outbox:    feed.NewOutbox(viewer),
		changes:   make(chan struct{}, 1),
		online:    make(map[string]bool),
		typing:    make(map[string]model.TypingIndicator),
	}
}

func (s *Store) ChannelID() string { return s.channelID }

// Changes signals after every state change. Signals are coalesced: one
// pending notification stands for any number of changes.
func (s *Store) Changes() <-chan struct{} { return s.changes }

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// LoadInitial fetches the channel, the newest page, receipts and members.
// Only the message page is required; the rest degrade to empty.
func (s *Store) LoadInitial(ctx context.Context) error {
	defer logger.DeferLogDuration("channel.LoadInitial", time.Now())()

	page, err := s.backend.FetchMessages(ctx, s.channelID, "", s.pageSize)
	if err != nil {
		return fmt.Errorf("channel.LoadInitial: %w", err)
	}
	ch, err := s.backend.FetchChannel(ctx, s.channelID)
	if err != nil {
		logger.Errorf("channel %s: fetch channel: %v", s.channelID, err)
		ch = model.Channel{ID: s.channelID}
	}
	receipts, err := s.backend.FetchReceipts(ctx, s.channelID)
	if err != nil {
		logger.Errorf("channel %s: fetch receipts: %v", s.channelID, err)
	}
	members, err := s.backend.FetchMembers(ctx, s.channelID)
	if err != nil {
		logger.Errorf("channel %s: fetch members: %v", s.channelID, err)
	}

	s.mu.Lock()
	s.loaded = true
	s.channel = ch
	s.messages = nil
	s.mergeLocked(page.Messages)
	s.hasMore = page.HasMore
	s.receipts = dedupeReceipts(receipts)
	s.setMembersLocked(members)
	s.mu.Unlock()
	s.notify()
	return nil
}

// Resync refreshes state after a realtime reconnect: the newest page is
// merged, receipts and members are replaced. Older history is kept.
func (s *Store) Resync(ctx context.Context) error {
	defer logger.DeferLogDuration("channel.Resync", time.Now())()
	page, err := s.backend.FetchMessages(ctx, s.channelID, "", s.pageSize)
	if err != nil {
		return fmt.Errorf("channel.Resync: %w", err)
	}
	receipts, rerr := s.backend.FetchReceipts(ctx, s.channelID)
	members, merr := s.backend.FetchMembers(ctx, s.channelID)

	s.mu.Lock()
	s.mergeLocked(page.Messages)
	if rerr == nil {
		s.receipts = dedupeReceipts(receipts)
	}
	if merr == nil {
		s.setMembersLocked(members)
	}
	s.mu.Unlock()
	s.notify()
	return errors.Join(rerr, merr)
}

// LoadOlderMessages prepends the page before the oldest confirmed message and
// returns how many new messages were added.
func (s *Store) LoadOlderMessages(ctx context.Context) (int, error) {
	defer logger.DeferLogDuration("channel.LoadOlderMessages", time.Now())()
	s.mu.RLock()
	if !s.loaded {
		s.mu.RUnlock()
		return 0, ErrNotLoaded
	}
	if !s.hasMore {
		s.mu.RUnlock()
		return 0, nil
	}
	cursor := s.oldestConfirmedLocked()
	s.mu.RUnlock()

	page, err := s.backend.FetchMessages(ctx, s.channelID, cursor, s.pageSize)
	if err != nil {
		return 0, fmt.Errorf("channel.LoadOlderMessages: %w", err)
	}

	s.mu.Lock()
	added := s.mergeLocked(page.Messages)
	s.hasMore = page.HasMore && added > 0
	s.mu.Unlock()
	s.notify()
	return added, nil
}

// Snapshot returns a copy of the current state. Expired typing indicators are omitted.
func (s *Store) Snapshot() model.ChannelSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := model.ChannelSnapshot{
		Channel:         s.channel,
		Messages:        append([]model.Message(nil), s.messages...),
		Receipts:        append([]model.ReadReceipt(nil), s.receipts...),
		Members:         append([]model.ChannelMember(nil), s.members...),
		OnlineUserIDs:   make(map[string]bool, len(s.online)),
		HasMoreMessages: s.hasMore,
	}
	for id, on := range s.online {
		if on {
			snap.OnlineUserIDs[id] = true
		}
	}
	now := s.now()
	for _, t := range s.typing {
		if now.Before(t.ExpiresAt) {
			snap.TypingUsers = append(snap.TypingUsers, t)
		}
	}
	sort.Slice(snap.TypingUsers, func(i, j int) bool {
		return snap.TypingUsers[i].Username < snap.TypingUsers[j].Username
	})
	return snap
}

// ExpireTyping drops stale typing indicators and reports whether any were removed.
func (s *Store) ExpireTyping() bool {
	s.mu.Lock()
	now := s.now()
	removed := false
	for id, t := range s.typing {
		if !now.Before(t.ExpiresAt) {
			delete(s.typing, id)
			removed = true
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
	return removed
}

func (s *Store) oldestConfirmedLocked() string {
	for i := range s.messages {
		if s.messages[i].Confirmed() {
			return s.messages[i].ID
		}
	}
	return ""
}

func (s *Store) indexLocked(id string) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// mergeLocked inserts messages not yet present and keeps the list ordered.
// It returns the number of inserted messages.
func (s *Store) mergeLocked(msgs []model.Message) int {
	if len(msgs) == 0 {
		return 0
	}
	have := make(map[string]bool, len(s.messages))
	for i := range s.messages {
		have[s.messages[i].ID] = true
	}
	added := 0
	for _, m := range msgs {
		if m.ID == "" || have[m.ID] {
			continue
		}
		if m.ChannelID == "" {
			m.ChannelID = s.channelID
		}
		have[m.ID] = true
		s.messages = append(s.messages, m)
		added++
	}
	if added > 0 {
		s.sortLocked()
	}
	return added
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.messages, func(i, j int) bool {
		a, b := &s.messages[i], &s.messages[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func (s *Store) setMembersLocked(members []model.ChannelMember) {
	s.members = append([]model.ChannelMember(nil), members...)
	for _, m := range members {
		s.online[m.UserID] = m.IsOnline
	}
}

func dedupeReceipts(in []model.ReadReceipt) []model.ReadReceipt {
	seen := make(map[[2]string]bool, len(in))
	out := make([]model.ReadReceipt, 0, len(in))
	for _, r := range in {
		k := [2]string{r.MessageID, r.UserID}
		if r.MessageID == "" || r.UserID == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
