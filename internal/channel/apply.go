package channel

import (
	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/realtime"
)

// Apply merges one realtime event and reports whether the state changed.
// Applying the same event twice has no further effect.
func (s *Store) Apply(ev realtime.Event) bool {
	var changed bool
	switch p := ev.Payload.(type) {
	case *model.Message:
		changed = s.applyNewMessage(*p)
	case *realtime.MessageEditedPayload:
		changed = s.forChannel(p.ChannelID) && s.applyEdit(p)
	case *realtime.MessageDeletedPayload:
		changed = s.forChannel(p.ChannelID) && s.markDeleted(p.MessageID)
	case *realtime.ReactionPayload:
		if !s.forChannel(p.ChannelID) {
			return false
		}
		if ev.Type == realtime.EventReactionRemoved {
			changed = s.removeReaction(p)
		} else {
			changed = s.addReaction(p)
		}
	case *realtime.MessageReadPayload:
		changed = s.forChannel(p.ChannelID) &&
			s.addReceipt(model.ReadReceipt{MessageID: p.MessageID, UserID: p.UserID, ReadAt: p.ReadAt})
	case *realtime.TypingPayload:
		changed = s.forChannel(p.ChannelID) && s.applyTyping(p)
	case *realtime.UserStatusPayload:
		changed = s.applyPresence(p.UserID, p.Online)
	case *realtime.MemberAddedPayload:
		changed = s.forChannel(p.ChannelID) && s.addMember(p)
	case *realtime.MemberRemovedPayload:
		changed = s.forChannel(p.ChannelID) && s.removeMember(p.UserID)
	case *realtime.ErrorPayload:
		logger.Errorf("realtime server error: %s", p.Message)
	}
	if changed {
		s.notify()
	}
	return changed
}

func (s *Store) forChannel(id string) bool {
	return id == "" || id == s.channelID
}

// applyNewMessage inserts a broadcast message. An echo of our own optimistic
// send (same nonce) replaces the placeholder.
func (s *Store) applyNewMessage(m model.Message) bool {
	if m.ID == "" || !s.forChannel(m.ChannelID) {
		return false
	}
	if localID, ok := s.outbox.LocalIDForNonce(m.ClientNonce); ok {
		confirmed, err := s.outbox.Confirm(localID, m)
		if err == nil {
			s.mu.Lock()
			defer s.mu.Unlock()
			if i := s.indexLocked(localID); i >= 0 {
				s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
			}
			if s.indexLocked(confirmed.ID) < 0 {
				s.mergeLocked([]model.Message{confirmed})
			}
			return true
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked([]model.Message{m}) > 0
}

func (s *Store) applyEdit(p *realtime.MessageEditedPayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(p.MessageID)
	if i < 0 {
		return false
	}
	m := s.messages[i]
	if m.Body == p.Body && m.PlainText == p.PlainText && m.EditedAt != nil {
		return false
	}
	m.Body, m.PlainText = p.Body, p.PlainText
	at := p.EditedAt
	if at.IsZero() {
		at = s.now()
	}
	m.EditedAt = &at
	s.messages[i] = m
	return true
}

func (s *Store) markDeleted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 || s.messages[i].IsDeleted {
		return false
	}
	s.messages[i].IsDeleted = true
	return true
}

func sameReaction(r model.ReactionEvent, p *realtime.ReactionPayload) bool {
	if p.ReactionID != "" && r.ID == p.ReactionID {
		return true
	}
	return r.UserID == p.UserID && r.Emoji == p.Emoji
}

func (s *Store) addReaction(p *realtime.ReactionPayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(p.MessageID)
	if i < 0 {
		return false
	}
	for _, r := range s.messages[i].Reactions {
		if sameReaction(r, p) {
			return false
		}
	}
	ev := model.ReactionEvent{ID: p.ReactionID, MessageID: p.MessageID, Emoji: p.Emoji, UserID: p.UserID, Username: p.Username}
	s.messages[i].Reactions = append(append([]model.ReactionEvent(nil), s.messages[i].Reactions...), ev)
	return true
}

func (s *Store) removeReaction(p *realtime.ReactionPayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(p.MessageID)
	if i < 0 {
		return false
	}
	old := s.messages[i].Reactions
	kept := make([]model.ReactionEvent, 0, len(old))
	for _, r := range old {
		if !sameReaction(r, p) {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(old) {
		return false
	}
	s.messages[i].Reactions = kept
	return true
}

func (s *Store) addReceipt(r model.ReadReceipt) bool {
	if r.MessageID == "" || r.UserID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.receipts {
		if x.MessageID == r.MessageID && x.UserID == r.UserID {
			return false
		}
	}
	s.receipts = append(s.receipts, r)
	return true
}

func (s *Store) applyTyping(p *realtime.TypingPayload) bool {
	if p.UserID == "" || p.UserID == s.viewer.ID {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !p.IsTyping() {
		if _, ok := s.typing[p.UserID]; !ok {
			return false
		}
		delete(s.typing, p.UserID)
		return true
	}
	name := p.Username
	if name == "" {
		for _, m := range s.members {
			if m.UserID == p.UserID {
				name = m.Username
			}
		}
	}
	_, existed := s.typing[p.UserID]
	s.typing[p.UserID] = model.TypingIndicator{UserID: p.UserID, Username: name, ExpiresAt: s.now().Add(s.typingTTL)}
	return !existed
}

func (s *Store) applyPresence(userID string, online bool) bool {
	if userID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online[userID] == online {
		return false
	}
	s.online[userID] = online
	for i := range s.members {
		if s.members[i].UserID == userID {
			s.members[i].IsOnline = online
		}
	}
	return true
}

func (s *Store) addMember(p *realtime.MemberAddedPayload) bool {
	if p.UserID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.UserID == p.UserID {
			return false
		}
	}
	s.members = append(s.members, model.ChannelMember{
		UserID:   p.UserID,
		Username: p.Username,
		Role:     model.MemberRoleMember,
		IsOnline: s.online[p.UserID],
	})
	return true
}

func (s *Store) removeMember(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.members {
		if m.UserID == userID {
			s.members = append(s.members[:i:i], s.members[i+1:]...)
			delete(s.typing, userID)
			return true
		}
	}
	return false
}
