package admin

import "github.com/crmchat/internal/model"

// CanDeleteMessage: own messages always, others' with delete_others_messages.
func CanDeleteMessage(p model.UserPermissions, senderID string) bool {
	if senderID != "" && senderID == p.UserID {
		return true
	}
	return p.Administrator || p.DeleteOthersMessages
}

// CanInvite gates creating employees.
func CanInvite(p model.UserPermissions) bool {
	return p.Administrator || p.InviteToTeam
}
