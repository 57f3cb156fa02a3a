package admin

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"

	"github.com/crmchat/internal/model"
)

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var phoneRe = regexp.MustCompile(`^\+[0-9]{8,15}$`)

// UserForm is the "create employee" form. Roles come from the cascade, so a
// role is only valid when it belongs to the selected department.
type UserForm struct {
	Username string
	Email    string
	Phone    string
	Cascade  *RoleCascade
}

// Validate checks the form and returns FieldErrors, or nil.
func (f *UserForm) Validate() error {
	errs := FieldErrors{}
	username := strings.TrimSpace(f.Username)
	switch {
	case username == "":
		errs["username"] = "required"
	case len([]rune(username)) < 3:
		errs["username"] = "at least 3 characters"
	}

	email := strings.TrimSpace(f.Email)
	if email == "" {
		errs["email"] = "required"
	} else if a, err := mail.ParseAddress(email); err != nil || a.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		errs["email"] = "invalid email"
	}

	if phone := normalizePhone(f.Phone); phone != "" && !phoneRe.MatchString(phone) {
		errs["phone"] = "use international format, e.g. +79991234567"
	}

	var department, roleID string
	if f.Cascade != nil {
		department, roleID = f.Cascade.Department(), f.Cascade.RoleID()
	}
	if department == "" {
		errs["department"] = "required"
	}
	switch {
	case roleID == "":
		errs["role"] = "required"
	case !f.Cascade.HasRole(roleID):
		errs["role"] = "not a role of the selected department"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// NewUser builds the request payload. Call Validate first.
func (f *UserForm) NewUser() model.NewUser {
	u := model.NewUser{
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
		Phone:    normalizePhone(f.Phone),
	}
	if f.Cascade != nil {
		u.DepartmentID = f.Cascade.Department()
		u.RoleID = f.Cascade.RoleID()
	}
	return u
}

// UserCreator submits new users.
type UserCreator interface {
	CreateUser(ctx context.Context, u model.NewUser) (model.UserPublic, error)
}

// Submit validates and creates the user.
func (f *UserForm) Submit(ctx context.Context, c UserCreator) (model.UserPublic, error) {
	if err := f.Validate(); err != nil {
		return model.UserPublic{}, err
	}
	u, err := c.CreateUser(ctx, f.NewUser())
	if err != nil {
		return model.UserPublic{}, fmt.Errorf("admin.Submit: %w", err)
	}
	return u, nil
}

// normalizePhone drops spaces, dashes and parentheses.
func normalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
