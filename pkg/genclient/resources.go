package genclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/inkwellhq/inkwell/api"
	"github.com/inkwellhq/inkwell/pkg/catalog"
)

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*catalog.User, error) {
	var u catalog.User
	if err := c.doJSON(ctx, http.MethodGet, "/v1/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListBlueprints(ctx context.Context) ([]catalog.Blueprint, error) {
	var out struct {
		Blueprints []catalog.Blueprint `json:"blueprints"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/blueprints", nil, &out); err != nil {
		return nil, err
	}
	return out.Blueprints, nil
}

func (c *Client) GetBlueprint(ctx context.Context, id string) (*catalog.Blueprint, error) {
	var b catalog.Blueprint
	if err := c.doJSON(ctx, http.MethodGet, "/v1/blueprints/"+url.PathEscape(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) CreateBlueprint(ctx context.Context, in api.BlueprintInput) (*catalog.Blueprint, error) {
	var b catalog.Blueprint
	if err := c.doJSON(ctx, http.MethodPost, "/v1/blueprints", in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) CloneBlueprint(ctx context.Context, id string) (*catalog.Blueprint, error) {
	var b catalog.Blueprint
	if err := c.doJSON(ctx, http.MethodPost, "/v1/blueprints/"+url.PathEscape(id)+"/clone", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) DeleteBlueprint(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/blueprints/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListProjects(ctx context.Context) ([]catalog.Project, error) {
	var out struct {
		Projects []catalog.Project `json:"projects"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*catalog.Project, error) {
	var p catalog.Project
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProject(ctx context.Context, in api.CreateProjectRequest) (*catalog.Project, error) {
	var p catalog.Project
	if err := c.doJSON(ctx, http.MethodPost, "/v1/projects", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/projects/"+url.PathEscape(id), nil, nil)
}

// SetFieldValues writes field values into a project's category tree.
func (c *Client) SetFieldValues(ctx context.Context, projectID string, values map[string]string) (*catalog.Project, error) {
	var p catalog.Project
	path := "/v1/projects/" + url.PathEscape(projectID) + "/categories"
	if err := c.doJSON(ctx, http.MethodPut, path, api.FieldValuesRequest{FieldValues: values}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListUsers is admin only. Tokens are not included.
func (c *Client) ListUsers(ctx context.Context) ([]catalog.User, error) {
	var out struct {
		Users []catalog.User `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// CreateUser is admin only. The returned user carries its token.
func (c *Client) CreateUser(ctx context.Context, in api.CreateUserRequest) (*catalog.User, error) {
	var u catalog.User
	if err := c.doJSON(ctx, http.MethodPost, "/v1/admin/users", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActivity is admin only. An empty userID lists every user and a
// non-positive limit uses the server default.
func (c *Client) ListActivity(ctx context.Context, userID string, limit int) ([]catalog.ActivityLog, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("user", userID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/admin/activity"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Activity []catalog.ActivityLog `json:"activity"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Activity, nil
}

// AdminListBlueprints is admin only. An empty ownerID lists every blueprint.
func (c *Client) AdminListBlueprints(ctx context.Context, ownerID string) ([]catalog.Blueprint, error) {
	var out struct {
		Blueprints []catalog.Blueprint `json:"blueprints"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/admin/blueprints"+ownerQuery(ownerID), nil, &out); err != nil {
		return nil, err
	}
	return out.Blueprints, nil
}

// AdminListProjects is admin only. An empty ownerID lists every project.
func (c *Client) AdminListProjects(ctx context.Context, ownerID string) ([]catalog.Project, error) {
	var out struct {
		Projects []catalog.Project `json:"projects"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/admin/projects"+ownerQuery(ownerID), nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func ownerQuery(ownerID string) string {
	if ownerID == "" {
		return ""
	}
	return "?owner=" + url.QueryEscape(ownerID)
}
