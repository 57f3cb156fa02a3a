package model

import "time"

type UserPublic struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	AvatarURL  string    `json:"avatar_url"`
	Role       string    `json:"role,omitempty"`
	IsOnline   bool      `json:"is_online"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Viewer is the identity the feed renders for.
type Viewer struct {
	ID          string
	Name        string
	Permissions UserPermissions
}

type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Role struct {
	ID           string `json:"id"`
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
}

// NewUser is the admin "create employee" payload.
type NewUser struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	DepartmentID string `json:"department_id"`
	RoleID       string `json:"role_id"`
}
