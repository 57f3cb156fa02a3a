package feed

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/crmchat/internal/admin"
	"github.com/crmchat/internal/model"
)

const (
	unknownUser       = "Unknown user"
	replyPreviewRunes = 80
)

// Action is a per-message affordance.
type Action string

const (
	ActionReply   Action = "reply"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionForward Action = "forward"
	ActionSelect  Action = "select"
	ActionRetry   Action = "retry"
)

// ReplyPreview is the quoted parent shown above a reply.
type ReplyPreview struct {
	MessageID string
	Author    string
	Text      string
	Missing   bool
}

// ItemView is everything the renderer needs to draw one message.
type ItemView struct {
	Index          int
	ID             string
	SenderID       string
	Author         string
	Initials       string
	Role           string
	Text           string
	ContentType    model.ContentType
	CreatedAt      time.Time
	Edited         bool
	Deleted        bool
	Mine           bool
	MentionsViewer bool
	Selected       bool
	Reply          *ReplyPreview
	Attachments    []model.Attachment
	Reactions      []model.GroupedReaction
	Readers        []string
	Status         SendStatus
	Actions        []Action
}

// Can reports whether action a is offered on the item.
func (v *ItemView) Can(a Action) bool {
	for _, x := range v.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// BuildItems maps a snapshot to view-models in rendered order. selected holds
// ids picked in select mode; it may be nil.
func BuildItems(snap *model.ChannelSnapshot, viewer model.Viewer, selected map[string]bool) []ItemView {
	byID := make(map[string]*model.Message, len(snap.Messages))
	for i := range snap.Messages {
		byID[snap.Messages[i].ID] = &snap.Messages[i]
	}
	items := make([]ItemView, 0, len(snap.Messages))
	for i := range snap.Messages {
		m := &snap.Messages[i]
		v := BuildItem(m, snap, viewer)
		v.Index = i + 1
		v.Selected = selected[m.ID]
		if m.ParentID != nil {
			v.Reply = replyPreview(*m.ParentID, byID, snap)
		}
		items = append(items, v)
	}
	return items
}

// BuildItem maps a single message. Reply previews need the whole list and
// are filled by BuildItems.
func BuildItem(m *model.Message, snap *model.ChannelSnapshot, viewer model.Viewer) ItemView {
	author, role := authorOf(m, snap)
	v := ItemView{
		ID:             m.ID,
		SenderID:       m.SenderID,
		Author:         author,
		Initials:       initials(author),
		Role:           role,
		Text:           m.Text(),
		ContentType:    m.ContentType,
		CreatedAt:      m.CreatedAt,
		Edited:         m.EditedAt != nil,
		Deleted:        m.IsDeleted,
		Mine:           m.SenderID == viewer.ID,
		MentionsViewer: mentions(m.Text(), viewer.Name),
		Attachments:    m.Attachments,
		Reactions:      GroupReactions(m.Reactions, viewer.ID),
		Status:         DeriveStatus(m, viewer.ID, snap.Receipts),
	}
	if m.Confirmed() {
		for _, r := range Readers(m, snap.Receipts) {
			v.Readers = append(v.Readers, memberName(snap, r.UserID))
		}
	}
	v.Actions = actionsFor(m, viewer)
	return v
}

func actionsFor(m *model.Message, viewer model.Viewer) []Action {
	if m.IsFailed {
		return []Action{ActionRetry}
	}
	if m.IsOptimistic || m.IsDeleted {
		return nil
	}
	mine := m.SenderID == viewer.ID
	acts := []Action{ActionReply}
	if mine && m.ContentType == model.ContentTypeText {
		acts = append(acts, ActionEdit)
	}
	if mine || admin.CanDeleteMessage(viewer.Permissions, m.SenderID) {
		acts = append(acts, ActionDelete)
	}
	return append(acts, ActionForward, ActionSelect)
}

func replyPreview(parentID string, byID map[string]*model.Message, snap *model.ChannelSnapshot) *ReplyPreview {
	p, ok := byID[parentID]
	if !ok {
		return &ReplyPreview{MessageID: parentID, Missing: true}
	}
	author, _ := authorOf(p, snap)
	return &ReplyPreview{MessageID: parentID, Author: author, Text: truncate(p.Text(), replyPreviewRunes)}
}

func authorOf(m *model.Message, snap *model.ChannelSnapshot) (name, role string) {
	if m.Sender != nil {
		name, role = strings.TrimSpace(m.Sender.Username), m.Sender.Role
	}
	if member, ok := snap.Member(m.SenderID); ok {
		if name == "" {
			name = strings.TrimSpace(member.Username)
		}
		if role == "" {
			role = member.Role
		}
	}
	if name == "" {
		name = unknownUser
	}
	return name, role
}

func memberName(snap *model.ChannelSnapshot, userID string) string {
	if m, ok := snap.Member(userID); ok && strings.TrimSpace(m.Username) != "" {
		return m.Username
	}
	return unknownUser
}

func initials(name string) string {
	out := make([]rune, 0, 2)
	for _, f := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(f)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, unicode.ToUpper(r))
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// mentions reports an @name mention of the viewer (case-insensitive).
func mentions(text, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), "@"+strings.ToLower(name))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
