package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crmchat/internal/feed"
	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
)

var ErrEmptyDraft = errors.New("empty message")

// SendMessage inserts an optimistic placeholder, sends draft and replaces the
// placeholder with the confirmed message, or marks it failed for retry.
// The result reports whether the send went through.
func (s *Store) SendMessage(ctx context.Context, draft model.Draft) (bool, error) {
	if strings.TrimSpace(draft.Body) == "" && strings.TrimSpace(draft.PlainText) == "" {
		return false, ErrEmptyDraft
	}
	draft.ChannelID = s.channelID
	msg := s.outbox.Begin(draft)
	draft.ClientNonce = msg.ClientNonce

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.sortLocked()
	s.mu.Unlock()
	s.notify()

	return s.deliver(ctx, msg.ID, draft)
}

// RetryMessage resends a failed message under its original nonce.
func (s *Store) RetryMessage(ctx context.Context, localID string) (bool, error) {
	draft, msg, err := s.outbox.Retry(localID)
	if err != nil {
		return false, fmt.Errorf("channel.RetryMessage: %w", err)
	}
	s.replace(localID, msg)
	return s.deliver(ctx, localID, draft)
}

// DiscardMessage removes a failed message from the list.
func (s *Store) DiscardMessage(localID string) bool {
	if !s.outbox.Discard(localID) {
		return false
	}
	s.mu.Lock()
	if i := s.indexLocked(localID); i >= 0 {
		s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
	}
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Store) deliver(ctx context.Context, localID string, draft model.Draft) (bool, error) {
	sent, err := s.backend.SendMessage(ctx, draft)
	if err != nil {
		failed, ferr := s.outbox.Fail(localID)
		if errors.Is(ferr, feed.ErrUnknownMessage) {
			// The realtime echo already confirmed it.
			return true, nil
		}
		if ferr != nil {
			return false, fmt.Errorf("channel.SendMessage: %w", errors.Join(err, ferr))
		}
		s.replace(localID, failed)
		logger.Errorf("channel %s: send failed: %v", s.channelID, err)
		return false, fmt.Errorf("channel.SendMessage: %w", err)
	}

	confirmed, cerr := s.outbox.Confirm(localID, sent)
	if cerr != nil && !errors.Is(cerr, feed.ErrUnknownMessage) {
		return false, fmt.Errorf("channel.SendMessage: %w", cerr)
	}
	if cerr != nil {
		confirmed = sent
		confirmed.Receipts = nil
	}
	s.mu.Lock()
	if i := s.indexLocked(localID); i >= 0 {
		s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
	}
	if s.indexLocked(confirmed.ID) < 0 {
		s.mergeLocked([]model.Message{confirmed})
	}
	s.mu.Unlock()
	s.notify()
	return true, nil
}

func (s *Store) replace(id string, msg model.Message) {
	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.messages[i] = msg
	}
	s.mu.Unlock()
	s.notify()
}

// EditMessage updates a confirmed message and applies the backend's version.
func (s *Store) EditMessage(ctx context.Context, messageID string, draft model.Draft) error {
	if strings.TrimSpace(draft.Body) == "" && strings.TrimSpace(draft.PlainText) == "" {
		return ErrEmptyDraft
	}
	draft.ChannelID = s.channelID
	edited, err := s.backend.EditMessage(ctx, messageID, draft)
	if err != nil {
		return fmt.Errorf("channel.EditMessage: %w", err)
	}
	s.mu.Lock()
	changed := false
	if i := s.indexLocked(messageID); i >= 0 {
		m := s.messages[i]
		m.Body, m.PlainText = draft.Body, draft.PlainText
		if edited.ID == messageID {
			m.Body, m.PlainText = edited.Body, edited.PlainText
			if edited.EditedAt != nil {
				m.EditedAt = edited.EditedAt
			}
		}
		if m.EditedAt == nil {
			t := s.now()
			m.EditedAt = &t
		}
		s.messages[i] = m
		changed = true
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
	return nil
}

// DeleteMessage asks the backend to delete; on success the message is
// soft-deleted locally. The realtime echo is idempotent.
func (s *Store) DeleteMessage(ctx context.Context, messageID string) error {
	if err := s.backend.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("channel.DeleteMessage: %w", err)
	}
	if s.markDeleted(messageID) {
		s.notify()
	}
	return nil
}

// MarkMessageRead reports the viewer's read and records the receipt locally
// so the message is not offered for marking again.
func (s *Store) MarkMessageRead(ctx context.Context, messageID string) error {
	if err := s.backend.MarkMessageRead(ctx, messageID); err != nil {
		return fmt.Errorf("channel.MarkMessageRead: %w", err)
	}
	if s.addReceipt(model.ReadReceipt{MessageID: messageID, UserID: s.viewer.ID, ReadAt: s.now()}) {
		s.notify()
	}
	return nil
}

// ReactToMessage toggles the viewer's reaction. The list changes when the
// realtime reaction event arrives.
func (s *Store) ReactToMessage(ctx context.Context, messageID, emoji string) error {
	emoji = feed.NormalizeEmoji(emoji)
	if err := s.backend.ReactToMessage(ctx, messageID, emoji); err != nil {
		return fmt.Errorf("channel.ReactToMessage: %w", err)
	}
	return nil
}

func (s *Store) ForwardMessages(ctx context.Context, messageIDs, targetChannelIDs []string) error {
	if len(messageIDs) == 0 || len(targetChannelIDs) == 0 {
		return fmt.Errorf("channel.ForwardMessages: nothing to forward")
	}
	if err := s.backend.ForwardMessages(ctx, messageIDs, targetChannelIDs); err != nil {
		return fmt.Errorf("channel.ForwardMessages: %w", err)
	}
	return nil
}
