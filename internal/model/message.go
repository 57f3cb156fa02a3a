package model

import "time"

type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeFile  ContentType = "file"
	ContentTypeAudio ContentType = "audio"
)

// Message is a channel message as delivered by the backend.
// IsOptimistic and IsFailed are client-only and never cross the wire.
type Message struct {
	ID          string          `json:"id"`
	ChannelID   string          `json:"channel_id"`
	SenderID    string          `json:"sender_id"`
	Sender      *UserPublic     `json:"sender,omitempty"`
	Body        string          `json:"body"`
	PlainText   string          `json:"plain_text"`
	ContentType ContentType     `json:"content_type"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	Reactions   []ReactionEvent `json:"reactions,omitempty"`
	Receipts    []ReadReceipt   `json:"receipts,omitempty"`
	ParentID    *string         `json:"parent_id,omitempty"`
	ClientNonce string          `json:"client_nonce,omitempty"`
	IsDeleted   bool            `json:"is_deleted"`
	CreatedAt   time.Time       `json:"created_at"`
	EditedAt    *time.Time      `json:"edited_at,omitempty"`

	IsOptimistic bool `json:"-"`
	IsFailed     bool `json:"-"`
}

// Confirmed reports whether the message has a stable server identifier.
func (m *Message) Confirmed() bool {
	return !m.IsOptimistic && !m.IsFailed
}

// Text returns the plain-text rendition, falling back to the markup body.
func (m *Message) Text() string {
	if m.PlainText != "" {
		return m.PlainText
	}
	return m.Body
}

type ReadReceipt struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

type ReactionEvent struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
}

// ReactionUser is one reacting user inside a GroupedReaction.
type ReactionUser struct {
	ReactionID string `json:"reaction_id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
}

// GroupedReaction is aggregated reaction info for display.
type GroupedReaction struct {
	Emoji           string         `json:"emoji"`
	Count           int            `json:"count"`
	Users           []ReactionUser `json:"users"`
	ReactedByViewer bool           `json:"reacted_by_viewer"`
}

type Attachment struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	FileName  string    `json:"file_name"`
	FileURL   string    `json:"file_url"`
	MimeType  string    `json:"mime_type,omitempty"`
	Size      int64     `json:"size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is what the compose surface hands to the send pipeline.
type Draft struct {
	ChannelID   string      `json:"channel_id"`
	Body        string      `json:"body"`
	PlainText   string      `json:"plain_text"`
	ContentType ContentType `json:"content_type"`
	ParentID    *string     `json:"parent_id,omitempty"`
	ClientNonce string      `json:"client_nonce,omitempty"`
}
