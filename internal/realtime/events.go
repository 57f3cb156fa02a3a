package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/crmchat/internal/model"
)

type EventType string

const (
	EventNewMessage      EventType = "new_message"
	EventMessageEdited   EventType = "message_edited"
	EventMessageDeleted  EventType = "message_deleted"
	EventReactionAdded   EventType = "reaction_added"
	EventReactionRemoved EventType = "reaction_removed"
	EventMessageRead     EventType = "message_read"
	EventTyping          EventType = "typing"
	EventUserOnline      EventType = "user_online"
	EventUserOffline     EventType = "user_offline"
	EventMemberAdded     EventType = "member_added"
	EventMemberRemoved   EventType = "member_removed"
	EventError           EventType = "error"

	// Local connection events, never sent by the server.
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
)

// envelope is what the server sends: {type, payload}.
type envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OutgoingMessage is what the client sends to the server.
type OutgoingMessage struct {
	Type      EventType `json:"type"`
	ChannelID string    `json:"channel_id,omitempty"`
	Typing    *bool     `json:"typing,omitempty"`
}

// Event is a decoded server event. Payload holds one of the typed payloads
// below (or *model.Message for new_message).
type Event struct {
	Type    EventType
	Payload any
}

// MessageEditedPayload is broadcast when a message is edited.
type MessageEditedPayload struct {
	MessageID string    `json:"message_id"`
	ChannelID string    `json:"channel_id"`
	Body      string    `json:"body"`
	PlainText string    `json:"plain_text"`
	EditedAt  time.Time `json:"edited_at"`
}

// MessageDeletedPayload is broadcast when a message is deleted.
type MessageDeletedPayload struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
}

// ReactionPayload is broadcast when a reaction is added or removed.
type ReactionPayload struct {
	ReactionID string `json:"reaction_id"`
	MessageID  string `json:"message_id"`
	ChannelID  string `json:"channel_id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Emoji      string `json:"emoji"`
}

// MessageReadPayload is broadcast when a member reads a message.
type MessageReadPayload struct {
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

// TypingPayload is broadcast when a member starts or stops typing.
// Servers that only send start events omit typing; it defaults to true.
type TypingPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Typing    *bool  `json:"typing,omitempty"`
}

func (p *TypingPayload) IsTyping() bool {
	return p.Typing == nil || *p.Typing
}

// UserStatusPayload is broadcast for online/offline status.
type UserStatusPayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// MemberAddedPayload is broadcast when a member is added to a channel.
type MemberAddedPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
}

// MemberRemovedPayload is broadcast when a member is removed or leaves.
type MemberRemovedPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	IsLeave   bool   `json:"is_leave"`
	ActorName string `json:"actor_name"`
}

// ErrorPayload carries a server-side error for a client request.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ErrUnknownEvent is returned by Decode for types this client does not handle.
type ErrUnknownEvent struct {
	Type EventType
}

func (e *ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// Decode parses a raw server frame into an Event with a typed payload.
func Decode(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, err
	}
	var p any
	switch env.Type {
	case EventNewMessage:
		p = &model.Message{}
	case EventMessageEdited:
		p = &MessageEditedPayload{}
	case EventMessageDeleted:
		p = &MessageDeletedPayload{}
	case EventReactionAdded, EventReactionRemoved:
		p = &ReactionPayload{}
	case EventMessageRead:
		p = &MessageReadPayload{}
	case EventTyping:
		p = &TypingPayload{}
	case EventUserOnline, EventUserOffline:
		p = &UserStatusPayload{}
	case EventMemberAdded:
		p = &MemberAddedPayload{}
	case EventMemberRemoved:
		p = &MemberRemovedPayload{}
	case EventError:
		p = &ErrorPayload{}
	default:
		return Event{}, &ErrUnknownEvent{Type: env.Type}
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	if s, ok := p.(*UserStatusPayload); ok {
		s.Online = env.Type == EventUserOnline
	}
	return Event{Type: env.Type, Payload: p}, nil
}
