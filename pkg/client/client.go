// Package client is a small REST client for the catalog service.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client calls the catalog HTTP API on behalf of one acting user.
type Client struct {
	http *resty.Client
}

// New creates a client for the given base URL, e.g.
// http://localhost:8080. The acting user id is sent on every request.
func New(baseURL, actingUser string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Catalog-User", actingUser).
		SetTimeout(30 * time.Second)
	return &Client{http: c}
}

// Perms is the capability set the service resolved for the acting
// user on the returned object.
type Perms struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
	Admin bool `json:"admin"`
}

// Owner identifies the owning user or organisation.
type Owner struct {
	User string `json:"user,omitempty"`
	Org  string `json:"org,omitempty"`
}

// Work is the work document as returned by the API.
type Work struct {
	ID          string                   `json:"id"`
	Version     int64                    `json:"version"`
	Alias       string                   `json:"alias,omitempty"`
	Description string                   `json:"description,omitempty"`
	Owner       Owner                    `json:"owner"`
	Public      bool                     `json:"public"`
	ForkedFrom  string                   `json:"forkedFrom,omitempty"`
	Sources     []map[string]interface{} `json:"sources,omitempty"`
	Annotations []map[string]interface{} `json:"annotations,omitempty"`
	Media       []string                 `json:"media,omitempty"`
	Perms       Perms                    `json:"_perms"`
}

// Media is the media document as returned by the API.
type Media struct {
	ID         string                 `json:"id"`
	Version    int64                  `json:"version"`
	Owner      Owner                  `json:"owner"`
	Public     bool                   `json:"public"`
	Works      []string               `json:"works,omitempty"`
	ReplacedBy string                 `json:"replacedBy,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Perms      Perms                  `json:"_perms"`
}

// User is the user document as returned by the API.
type User struct {
	ID      string                 `json:"id"`
	Version int64                  `json:"version"`
	Alias   string                 `json:"alias,omitempty"`
	Profile map[string]interface{} `json:"profile,omitempty"`
	Perms   Perms                  `json:"_perms"`
}

// Organisation is the organisation document as returned by the API.
type Organisation struct {
	ID      string                 `json:"id"`
	Version int64                  `json:"version"`
	Alias   string                 `json:"alias,omitempty"`
	Profile map[string]interface{} `json:"profile,omitempty"`
	Owners  []string               `json:"owners"`
	Perms   Perms                  `json:"_perms"`
}

// EventBatch is one entry of an object's event history.
type EventBatch struct {
	User    string                   `json:"user"`
	Date    time.Time                `json:"date"`
	Type    string                   `json:"type"`
	Object  string                   `json:"object"`
	Version int64                    `json:"version"`
	Events  []map[string]interface{} `json:"events"`
}

type eventsEnvelope struct {
	Events []EventBatch `json:"events"`
	Count  int          `json:"count"`
}

type apiError struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx).SetError(&apiError{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Message != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, apiErr.Message, resp.StatusCode())
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode())
	}
	return nil
}

func withVersion(path string, version *int64) string {
	if version == nil {
		return path
	}
	return fmt.Sprintf("%s?version=%d", path, *version)
}

// CreateUser registers a new user.
func (c *Client) CreateUser(ctx context.Context, body map[string]interface{}) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPost, "/api/users", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/api/users/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser applies partial profile changes.
func (c *Client) UpdateUser(ctx context.Context, id string, version *int64, body map[string]interface{}) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPatch, withVersion("/api/users/"+id, version), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrganisation creates an organisation owned by the acting user.
func (c *Client) CreateOrganisation(ctx context.Context, body map[string]interface{}) (*Organisation, error) {
	var out Organisation
	if err := c.do(ctx, http.MethodPost, "/api/orgs", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrganisation fetches an organisation by id.
func (c *Client) GetOrganisation(ctx context.Context, id string) (*Organisation, error) {
	var out Organisation
	if err := c.do(ctx, http.MethodGet, "/api/orgs/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrganisation applies partial changes, including the owner list.
func (c *Client) UpdateOrganisation(ctx context.Context, id string, version *int64, body map[string]interface{}) (*Organisation, error) {
	var out Organisation
	if err := c.do(ctx, http.MethodPatch, withVersion("/api/orgs/"+id, version), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateWork creates a work.
func (c *Client) CreateWork(ctx context.Context, body map[string]interface{}) (*Work, error) {
	var out Work
	if err := c.do(ctx, http.MethodPost, "/api/works", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWork fetches a work by id.
func (c *Client) GetWork(ctx context.Context, id string) (*Work, error) {
	var out Work
	if err := c.do(ctx, http.MethodGet, "/api/works/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateWork applies partial field changes.
func (c *Client) UpdateWork(ctx context.Context, id string, version *int64, body map[string]interface{}) (*Work, error) {
	var out Work
	if err := c.do(ctx, http.MethodPatch, withVersion("/api/works/"+id, version), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWork removes a work.
func (c *Client) DeleteWork(ctx context.Context, id string, version *int64) error {
	return c.do(ctx, http.MethodDelete, withVersion("/api/works/"+id, version), nil, nil)
}

// AddWorkSource links a source work.
func (c *Client) AddWorkSource(ctx context.Context, id string, version *int64, body map[string]interface{}) (*Work, error) {
	var out Work
	if err := c.do(ctx, http.MethodPost, withVersion("/api/works/"+id+"/sources", version), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddWorkAnnotation attaches a scored property.
func (c *Client) AddWorkAnnotation(ctx context.Context, id string, version *int64, body map[string]interface{}) (*Work, error) {
	var out Work
	if err := c.do(ctx, http.MethodPost, withVersion("/api/works/"+id+"/annotations", version), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddWorkMedia links an existing media to the work.
func (c *Client) AddWorkMedia(ctx context.Context, id string, version *int64, mediaID string) (*Work, error) {
	var out Work
	if err := c.do(ctx, http.MethodPut, withVersion("/api/works/"+id+"/media/"+mediaID, version), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveWorkMedia unlinks a media from the work.
func (c *Client) RemoveWorkMedia(ctx context.Context, id string, version *int64, mediaID string) (*Work, error) {
	var out Work
	if err := c.do(ctx, http.MethodDelete, withVersion("/api/works/"+id+"/media/"+mediaID, version), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WorkEvents fetches a work's event history.
func (c *Client) WorkEvents(ctx context.Context, id string) ([]EventBatch, error) {
	var out eventsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/works/"+id+"/events", nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// CreateMedia creates a media aggregate.
func (c *Client) CreateMedia(ctx context.Context, body map[string]interface{}) (*Media, error) {
	var out Media
	if err := c.do(ctx, http.MethodPost, "/api/media", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMedia fetches a media by id.
func (c *Client) GetMedia(ctx context.Context, id string) (*Media, error) {
	var out Media
	if err := c.do(ctx, http.MethodGet, "/api/media/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMedia removes a media aggregate.
func (c *Client) DeleteMedia(ctx context.Context, id string, version *int64) error {
	return c.do(ctx, http.MethodDelete, withVersion("/api/media/"+id, version), nil, nil)
}

// Health reports whether the service considers itself healthy.
func (c *Client) Health(ctx context.Context) (bool, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return false, err
	}
	return out.Status == "healthy", nil
}
