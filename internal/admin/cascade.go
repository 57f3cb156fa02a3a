// Package admin holds the client logic of the user administration screens:
// the department to role cascade, create-user validation and permission gating.
package admin

import (
	"context"
	"errors"
	"sync"

	"github.com/crmchat/internal/model"
)

// CascadeState is the lifecycle of the roles list for the selected department.
type CascadeState int

const (
	CascadeIdle CascadeState = iota
	CascadeFetching
	CascadeApplied
	CascadeSuperseded
	CascadeFailed
)

func (s CascadeState) String() string {
	switch s {
	case CascadeIdle:
		return "idle"
	case CascadeFetching:
		return "fetching"
	case CascadeApplied:
		return "applied"
	case CascadeSuperseded:
		return "superseded"
	case CascadeFailed:
		return "failed"
	}
	return "unknown"
}

// ErrSuperseded is returned by Load when a newer department was selected
// before the roles arrived.
var ErrSuperseded = errors.New("department selection superseded")

// Ticket identifies one roles request. It is captured when the request is
// dispatched and checked when it resolves.
type Ticket struct {
	DepartmentID string
	gen          uint64
}

// RoleFetcher loads the roles of a department.
type RoleFetcher interface {
	FetchRoles(ctx context.Context, departmentID string) ([]model.Role, error)
}

// RoleCascade keeps the role selection consistent with the selected department.
type RoleCascade struct {
	mu         sync.Mutex
	gen        uint64
	state      CascadeState
	department string
	roles      []model.Role
	roleID     string
	err        error
}

func NewRoleCascade() *RoleCascade {
	return &RoleCascade{}
}

// SelectDepartment switches the target department. The role selection and
// roles list are cleared immediately, before any fetch resolves.
func (c *RoleCascade) SelectDepartment(departmentID string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.department = departmentID
	c.roles = nil
	c.roleID = ""
	c.err = nil
	if departmentID == "" {
		c.state = CascadeIdle
	} else {
		c.state = CascadeFetching
	}
	return Ticket{DepartmentID: departmentID, gen: c.gen}
}

// Resolve applies the outcome of the request identified by t. A stale ticket
// leaves the state untouched and reports CascadeSuperseded.
func (c *RoleCascade) Resolve(t Ticket, roles []model.Role, err error) CascadeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.gen != c.gen || t.DepartmentID != c.department || c.state != CascadeFetching {
		return CascadeSuperseded
	}
	if err != nil {
		c.state = CascadeFailed
		c.err = err
		return c.state
	}
	kept := make([]model.Role, 0, len(roles))
	for _, r := range roles {
		if r.DepartmentID == "" || r.DepartmentID == t.DepartmentID {
			kept = append(kept, r)
		}
	}
	c.roles = kept
	c.state = CascadeApplied
	return c.state
}

// Load selects departmentID and fetches its roles.
func (c *RoleCascade) Load(ctx context.Context, f RoleFetcher, departmentID string) ([]model.Role, error) {
	t := c.SelectDepartment(departmentID)
	if departmentID == "" {
		return nil, nil
	}
	roles, err := f.FetchRoles(ctx, departmentID)
	switch c.Resolve(t, roles, err) {
	case CascadeSuperseded:
		return nil, ErrSuperseded
	case CascadeFailed:
		return nil, err
	}
	return c.Roles(), nil
}

// SelectRole picks a role from the applied list.
func (c *RoleCascade) SelectRole(roleID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CascadeApplied {
		return false
	}
	for _, r := range c.roles {
		if r.ID == roleID {
			c.roleID = roleID
			return true
		}
	}
	return false
}

func (c *RoleCascade) State() CascadeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *RoleCascade) Department() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.department
}

func (c *RoleCascade) Roles() []model.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Role(nil), c.roles...)
}

func (c *RoleCascade) RoleID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roleID
}

// Err is the last fetch error while in CascadeFailed.
func (c *RoleCascade) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// HasRole reports whether roleID is in the applied list.
func (c *RoleCascade) HasRole(roleID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}
