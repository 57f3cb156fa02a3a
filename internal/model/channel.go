package model

import "time"

type ChannelKind string

const (
	ChannelKindDirect ChannelKind = "direct"
	ChannelKindGroup  ChannelKind = "group"
)

type Channel struct {
	ID          string      `json:"id"`
	Kind        ChannelKind `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
}

const (
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

type ChannelMember struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	IsOnline  bool   `json:"is_online"`
	Role      string `json:"role"`
}

// TypingIndicator expires on the client when no stop signal arrives.
type TypingIndicator struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"-"`
}

// ChannelSnapshot is the read-only state the feed renders from.
// Owners hand out copies; the feed never mutates it.
type ChannelSnapshot struct {
	Channel         Channel
	Messages        []Message
	Receipts        []ReadReceipt
	TypingUsers     []TypingIndicator
	Members         []ChannelMember
	OnlineUserIDs   map[string]bool
	HasMoreMessages bool
}

// Member returns the member with the given id.
func (s *ChannelSnapshot) Member(userID string) (ChannelMember, bool) {
	for _, m := range s.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return ChannelMember{}, false
}
