package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the API, carrying its "error" message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d: %s", e.Status, e.Message)
}

// Client is a typed HTTP client for the admin API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:8080/api.
// A nil httpClient gets a 15 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// List decodes the collection for entity into dest. query may be nil.
func (c *Client) List(ctx context.Context, entity string, query url.Values, dest any) error {
	path := "/" + entity
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, dest)
}

// Get decodes one row into dest. A missing row decodes as JSON null.
func (c *Client) Get(ctx context.Context, entity, id string, dest any) error {
	return c.do(ctx, http.MethodGet, "/"+entity+"/"+url.PathEscape(id), nil, dest)
}

// Create posts body and returns the id of the new row.
func (c *Client) Create(ctx context.Context, entity string, body any) (string, error) {
	var ack struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/"+entity, body, &ack); err != nil {
		return "", err
	}
	return ack.ID, nil
}

func (c *Client) Update(ctx context.Context, entity, id string, body any) error {
	return c.do(ctx, http.MethodPut, "/"+entity+"/"+url.PathEscape(id), body, nil)
}

func (c *Client) Delete(ctx context.Context, entity, id string) error {
	return c.do(ctx, http.MethodDelete, "/"+entity+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode >= 400 {
		apiErr := &APIError{Status: res.StatusCode, Message: strings.TrimSpace(string(data))}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if dest == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
