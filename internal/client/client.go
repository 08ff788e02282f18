package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/D-keii/NextNation-RentSafe/internal/documents"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
)

// Session is the signed-in user the client acts for.
type Session struct {
	Token  string
	UserID string
	Name   string
}

// Client talks to the RentSafe API.
type Client struct {
	baseURL string
	session Session
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		session: session,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() Session { return c.session }

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

var codeErrors = map[string]error{
	"validation_failed":     properties.ErrValidation,
	"verification_required": properties.ErrVerificationRequired,
	"documents_required":    properties.ErrDocumentsRequired,
	"invalid_state":         properties.ErrInvalidState,
	"forbidden":             properties.ErrForbidden,
	"not_found":             properties.ErrNotFound,
	"file_type":             documents.ErrFileType,
	"file_size":             documents.ErrFileSize,
}

// Is lets callers match server error codes against the package sentinels.
func (e *APIError) Is(target error) bool {
	return codeErrors[e.Code] == target && target != nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error  string            `json:"error"`
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Code = body.Code
		apiErr.Fields = body.Fields
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

func (c *Client) CreateProperty(ctx context.Context, draft *properties.Draft) (*properties.Property, error) {
	var p properties.Property
	if err := c.doJSON(ctx, http.MethodPost, "/properties", draft, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProperty(ctx context.Context, id string, draft *properties.Draft) (*properties.Property, error) {
	var p properties.Property
	if err := c.doJSON(ctx, http.MethodPut, "/properties/"+url.PathEscape(id), draft, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetProperty(ctx context.Context, id string) (*properties.Property, error) {
	var p properties.Property
	if err := c.doJSON(ctx, http.MethodGet, "/properties/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProperties returns the caller's listings. status is "verified",
// "unverified" or "" for all.
func (c *Client) ListProperties(ctx context.Context, status string) ([]properties.ListingView, error) {
	path := "/properties"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out struct {
		Properties []properties.ListingView `json:"properties"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Properties, nil
}

func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/properties/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SubmitVerification(ctx context.Context, id string, docs map[documents.Key]string) (*properties.Property, error) {
	var p properties.Property
	req := properties.SubmitVerificationRequest{Documents: docs}
	if err := c.doJSON(ctx, http.MethodPost, "/properties/"+url.PathEscape(id)+"/verification", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListSaved(ctx context.Context) ([]string, error) {
	var out struct {
		IDs []string `json:"ids"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/saved", nil, &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

func (c *Client) SaveProperty(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/saved/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UnsaveProperty(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/saved/"+url.PathEscape(id), nil, nil)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
