package feed

import "github.com/crmchat/internal/model"

// SendStatus is the delivery state shown on the viewer's own messages.
type SendStatus string

const (
	StatusNone    SendStatus = ""
	StatusSending SendStatus = "sending"
	StatusFailed  SendStatus = "failed"
	StatusRead    SendStatus = "read"
	StatusSent    SendStatus = "sent"
)

// MergeReceipts unions the message's embedded receipts with the channel-wide
// list, keyed by user id. Embedded receipts come first and win on duplicates;
// channel-wide entries for other messages are ignored.
func MergeReceipts(messageID string, embedded, channelWide []model.ReadReceipt) []model.ReadReceipt {
	seen := make(map[string]struct{}, len(embedded)+len(channelWide))
	merged := make([]model.ReadReceipt, 0, len(embedded)+len(channelWide))
	for _, r := range embedded {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range channelWide {
		if r.MessageID != messageID {
			continue
		}
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		merged = append(merged, r)
	}
	return merged
}

// Readers returns who has read msg. The sender is never a reader of their
// own message, whatever the sources contain.
func Readers(msg *model.Message, channelWide []model.ReadReceipt) []model.ReadReceipt {
	merged := MergeReceipts(msg.ID, msg.Receipts, channelWide)
	out := merged[:0]
	for _, r := range merged {
		if r.UserID == msg.SenderID || r.UserID == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// HasReadBy reports whether userID holds a receipt for msg in either source.
func HasReadBy(msg *model.Message, channelWide []model.ReadReceipt, userID string) bool {
	for _, r := range msg.Receipts {
		if r.UserID == userID {
			return true
		}
	}
	for _, r := range channelWide {
		if r.MessageID == msg.ID && r.UserID == userID {
			return true
		}
	}
	return false
}

// DeriveStatus picks the single status glyph for the viewer's own message.
// Priority: sending > failed > read by someone else > sent.
func DeriveStatus(msg *model.Message, viewerID string, channelWide []model.ReadReceipt) SendStatus {
	if msg.SenderID != viewerID {
		return StatusNone
	}
	switch {
	case msg.IsOptimistic:
		return StatusSending
	case msg.IsFailed:
		return StatusFailed
	case len(Readers(msg, channelWide)) > 0:
		return StatusRead
	default:
		return StatusSent
	}
}
