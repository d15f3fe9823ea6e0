package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// ClientIDHeader carries the writer's websocket client id so the server can
// leave it out of the save broadcast.
const ClientIDHeader = "X-Client-ID"

// Client is a Store backed by the document server's HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	mu       sync.Mutex
	clientID string
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

// SetClientID tags subsequent requests with the subscriber's client id.
func (c *Client) SetClientID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientID = id
}

func (c *Client) documentURL(id string, parts ...string) string {
	u := c.baseURL + "/api/documents/" + url.PathEscape(id)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

func (c *Client) do(ctx context.Context, method, u, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.Lock()
	if c.clientID != "" {
		req.Header.Set(ClientIDHeader, c.clientID)
	}
	c.mu.Unlock()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrForbidden
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.TrimSpace(string(data)))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s %s: status %d", method, u, resp.StatusCode)
	}
	return data, nil
}

func (c *Client) LoadContent(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, c.documentURL(id, "content"), "", nil)
}

func (c *Client) SaveContent(ctx context.Context, id string, content []byte) error {
	_, err := c.do(ctx, http.MethodPut, c.documentURL(id, "content"), "application/json", content)
	return err
}

type createRequest struct {
	Kind    Kind            `json:"kind"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content,omitempty"`
}

// CreateDocument ignores ownerID: the server takes the owner from the token.
func (c *Client) CreateDocument(ctx context.Context, _ string, kind Kind, title string, initial []byte) (*Document, error) {
	body, err := json.Marshal(createRequest{Kind: kind, Title: title, Content: initial})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/documents", "application/json", body)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

func (c *Client) UploadThumbnail(ctx context.Context, id string, png []byte) error {
	_, err := c.do(ctx, http.MethodPut, c.documentURL(id, "thumbnail"), "image/png", png)
	return err
}

// editorSettingsPath serves the server's editor tunables.
const editorSettingsPath = "/api/config/editor"

// EditorSettings decodes the server's editor tunables into v.
func (c *Client) EditorSettings(ctx context.Context, v any) error {
	data, err := c.do(ctx, http.MethodGet, c.baseURL+editorSettingsPath, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode editor settings: %w", err)
	}
	return nil
}
