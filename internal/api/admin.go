package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/storage"
)

func (c *Client) FetchDepartments(ctx context.Context) ([]model.Department, error) {
	defer logger.DeferLogDuration("api.FetchDepartments", time.Now())()
	var out []model.Department
	if c.cached(ctx, storage.DepartmentsKey(), &out) {
		return out, nil
	}
	body, err := c.do(ctx, http.MethodGet, "/departments", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("api.FetchDepartments: %w", err)
	}
	out, err = decodeList[model.Department](body)
	if err != nil {
		return nil, fmt.Errorf("api.FetchDepartments: %w", err)
	}
	c.store(ctx, storage.DepartmentsKey(), out)
	return out, nil
}

// FetchRoles returns the roles of one department.
func (c *Client) FetchRoles(ctx context.Context, departmentID string) ([]model.Role, error) {
	defer logger.DeferLogDuration("api.FetchRoles", time.Now())()
	key := storage.RolesKey(departmentID)
	var out []model.Role
	if c.cached(ctx, key, &out) {
		return out, nil
	}
	body, err := c.do(ctx, http.MethodGet, "/departments/"+url.PathEscape(departmentID)+"/roles", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("api.FetchRoles: %w", err)
	}
	out, err = decodeList[model.Role](body)
	if err != nil {
		return nil, fmt.Errorf("api.FetchRoles: %w", err)
	}
	for i := range out {
		if out[i].DepartmentID == "" {
			out[i].DepartmentID = departmentID
		}
	}
	c.store(ctx, key, out)
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, u model.NewUser) (model.UserPublic, error) {
	defer logger.DeferLogDuration("api.CreateUser", time.Now())()
	body, err := c.do(ctx, http.MethodPost, "/users", nil, u)
	if err != nil {
		return model.UserPublic{}, fmt.Errorf("api.CreateUser: %w", err)
	}
	out, err := decodeObject[model.UserPublic](body)
	if err != nil {
		return model.UserPublic{}, fmt.Errorf("api.CreateUser: %w", err)
	}
	return out, nil
}
