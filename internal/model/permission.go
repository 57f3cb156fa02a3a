package model

// UserPermissions — права пользователя в команде (чаты и участники).
type UserPermissions struct {
	UserID               string `json:"user_id"`
	Administrator        bool   `json:"administrator"`
	Member               bool   `json:"member"`
	DeleteOthersMessages bool   `json:"delete_others_messages"`
	EditOthersProfile    bool   `json:"edit_others_profile"`
	InviteToTeam         bool   `json:"invite_to_team"`
	RemoveFromTeam       bool   `json:"remove_from_team"`
}
