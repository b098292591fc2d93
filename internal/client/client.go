package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// backendPort is the fixed port the collection backend listens on.
const backendPort = "8090"

// ResolveURL picks the backend base URL: the SNACKFLOW_SERVER_URL environment
// override wins, then the given host on the fixed backend port, then local
// loopback.
func ResolveURL(host string) string {
	if env := os.Getenv("SNACKFLOW_SERVER_URL"); env != "" {
		return env
	}
	if host != "" {
		return "http://" + host + ":" + backendPort
	}
	return "http://127.0.0.1:" + backendPort
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client is a thin wrapper over the collection backend's HTTP API. Auth state
// lives in the injected AuthStore so several clients can share one session,
// or hold deliberately separate ones.
type Client struct {
	http    *resty.Client
	auth    *AuthStore
	baseURL string
}

// New creates a Client for the given base URL using the given auth store.
// A nil store gets a fresh empty one.
func New(baseURL string, auth *AuthStore) *Client {
	if auth == nil {
		auth = NewAuthStore()
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Accept", "application/json"),
		auth:    auth,
		baseURL: baseURL,
	}
}

// AuthStore returns the session store backing this client.
func (c *Client) AuthStore() *AuthStore {
	return c.auth
}

// BaseURL returns the backend base URL this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token := c.auth.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

// check converts non-2xx responses into *APIError.
func check(resp *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(resp.Body(), &body)
		if body.Error == "" {
			body.Error = resp.Status()
		}
		return nil, &APIError{Status: resp.StatusCode(), Message: body.Error}
	}
	return resp, nil
}

// ListOptions narrow a record listing.
type ListOptions struct {
	Filter  string
	Sort    string
	Page    int
	PerPage int
}

// ListResult is one page of records.
type ListResult struct {
	Page       int              `json:"page"`
	PerPage    int              `json:"perPage"`
	TotalItems int              `json:"totalItems"`
	Items      []map[string]any `json:"items"`
}

// List fetches one page of records from a collection.
func (c *Client) List(ctx context.Context, collection string, opts ListOptions) (ListResult, error) {
	req := c.request(ctx)
	if opts.Filter != "" {
		req.SetQueryParam("filter", opts.Filter)
	}
	if opts.Sort != "" {
		req.SetQueryParam("sort", opts.Sort)
	}
	if opts.Page > 0 {
		req.SetQueryParam("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		req.SetQueryParam("perPage", strconv.Itoa(opts.PerPage))
	}

	resp, err := check(req.Get("/api/collections/" + url.PathEscape(collection) + "/records"))
	if err != nil {
		return ListResult{}, err
	}

	var result ListResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return ListResult{}, fmt.Errorf("decode list response: %w", err)
	}
	return result, nil
}

// FullList pages through a collection and returns every matching record.
func (c *Client) FullList(ctx context.Context, collection string, opts ListOptions) ([]map[string]any, error) {
	if opts.PerPage <= 0 {
		opts.PerPage = 200
	}

	var items []map[string]any
	for page := 1; ; page++ {
		opts.Page = page
		result, err := c.List(ctx, collection, opts)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if len(items) >= result.TotalItems || len(result.Items) == 0 {
			return items, nil
		}
	}
}

// GetOne fetches a single record by id.
func (c *Client) GetOne(ctx context.Context, collection, id string) (map[string]any, error) {
	resp, err := check(c.request(ctx).
		Get("/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

// Create inserts a record.
func (c *Client) Create(ctx context.Context, collection string, body map[string]any) (map[string]any, error) {
	resp, err := check(c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/api/collections/" + url.PathEscape(collection) + "/records"))
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

// Update patches a record; absent fields keep their stored values.
func (c *Client) Update(ctx context.Context, collection, id string, body map[string]any) (map[string]any, error) {
	resp, err := check(c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Patch("/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	_, err := check(c.request(ctx).
		Delete("/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(id)))
	return err
}

// SchemaField is one field of a collection schema definition.
type SchemaField struct {
	Name     string             `json:"name"`
	Type     string             `json:"type"`
	Required bool               `json:"required,omitempty"`
	Options  SchemaFieldOptions `json:"options,omitempty"`
}

// SchemaFieldOptions carries per-type field settings.
type SchemaFieldOptions struct {
	Values        []string `json:"values,omitempty"`
	Collection    string   `json:"collection,omitempty"`
	CascadeDelete bool     `json:"cascadeDelete,omitempty"`
}

// CollectionSchema is a collection definition. Nil rules mean superuser-only,
// empty strings mean public.
type CollectionSchema struct {
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Fields     []SchemaField `json:"fields"`
	ListRule   *string       `json:"listRule"`
	ViewRule   *string       `json:"viewRule"`
	CreateRule *string       `json:"createRule"`
	UpdateRule *string       `json:"updateRule"`
	DeleteRule *string       `json:"deleteRule"`
}

// CreateCollection registers a collection. Requires a superuser session.
func (c *Client) CreateCollection(ctx context.Context, schema CollectionSchema) error {
	_, err := check(c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(schema).
		Post("/api/collections"))
	return err
}

// AuthWithPassword logs in against the users collection and saves the
// session in the auth store.
func (c *Client) AuthWithPassword(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/api/auth/login", email, password, false)
}

// AuthAdminWithPassword logs in as a superuser and saves the session in the
// auth store.
func (c *Client) AuthAdminWithPassword(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/api/auth/admin/login", email, password, true)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string, superuser bool) error {
	resp, err := check(c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"email": email, "password": password}).
		Post(path))
	if err != nil {
		return err
	}

	var body struct {
		Token  string         `json:"token"`
		Record map[string]any `json:"record"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	if body.Token == "" {
		return fmt.Errorf("auth response missing token")
	}

	c.auth.Save(body.Token, body.Record, superuser)
	return nil
}

// VersionInfo is the backend's published build metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	Type      string `json:"type"`
}

// Version fetches /version.json.
func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	resp, err := check(c.request(ctx).Get("/version.json"))
	if err != nil {
		return VersionInfo{}, err
	}
	var info VersionInfo
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return VersionInfo{}, fmt.Errorf("decode version response: %w", err)
	}
	return info, nil
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := check(c.request(ctx).Get("/health"))
	return err
}

func decodeRecord(resp *resty.Response) (map[string]any, error) {
	var record map[string]any
	if err := json.Unmarshal(resp.Body(), &record); err != nil {
		return nil, fmt.Errorf("decode record response: %w", err)
	}
	return record, nil
}
