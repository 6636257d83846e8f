package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerUserAgent     = "User-Agent"
	contentTypeJSON     = "application/json"
	sdkUserAgent        = "rehab-go/1.0.0"
)

// envelope is the response body of every API route.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Meta    *Meta           `json:"meta,omitempty"`
}

// doRequest performs an HTTP request, unwraps the envelope into result and
// returns the pagination metadata when present.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) (*Meta, error) {
	reqURL := strings.TrimRight(c.baseURL, "/") + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerUserAgent, sdkUserAgent)
	if c.token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseError(resp.StatusCode, respBody)
	}

	if len(respBody) == 0 {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return nil, fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return env.Meta, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	_, err := c.doRequest(ctx, http.MethodGet, path, nil, result)
	return err
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	_, err := c.doRequest(ctx, http.MethodPost, path, body, result)
	return err
}

func (c *Client) put(ctx context.Context, path string, body, result any) error {
	_, err := c.doRequest(ctx, http.MethodPut, path, body, result)
	return err
}

func (c *Client) patch(ctx context.Context, path string, body, result any) error {
	_, err := c.doRequest(ctx, http.MethodPatch, path, body, result)
	return err
}

func (c *Client) delete(ctx context.Context, path string, body any) error {
	_, err := c.doRequest(ctx, http.MethodDelete, path, body, nil)
	return err
}
