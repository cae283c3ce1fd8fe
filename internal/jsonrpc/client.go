package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/airchains-network/da-dispatcher/da/daerr"
)

// Request is a JSON-RPC 2.0 request. Params is a positional list or a named object.
type Request struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      uint64 `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the error object returned by a JSON-RPC server.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Name    string          `json:"name,omitempty"`
	Cause   *struct {
		Name string          `json:"name"`
		Info json.RawMessage `json:"info,omitempty"`
	} `json:"cause,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Name != "" {
		return fmt.Sprintf("RPC error %d (%s): %s", e.Code, e.Cause.Name, e.Message)
	}
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// CauseName returns the structured error cause reported by the server, if any.
func (e *Error) CauseName() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Name
}

// Client calls a single JSON-RPC endpoint over HTTP.
type Client struct {
	URL     string
	Headers map[string]string
	HTTP    *http.Client

	nextID atomic.Uint64
}

// NewClient creates a JSON-RPC client for url.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{URL: url, HTTP: httpClient, Headers: map[string]string{}}
}

// WithBearer sets the Authorization header used on every call.
func (c *Client) WithBearer(token string) *Client {
	if token != "" {
		c.Headers["Authorization"] = "Bearer " + token
	}
	return c
}

// Call performs method with params and decodes the result into out.
// Transport failures and 5xx answers come back as retriable errors, server
// side RPC errors as *Error.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	reqBody := Request{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return daerr.Terminal(method, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(data))
	if err != nil {
		return daerr.Terminal(method, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return daerr.Retriable(method, fmt.Errorf("failed to call RPC: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return daerr.Retriable(method, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest && len(body) == 0 {
		return daerr.Wrap(method, &daerr.StatusError{Code: resp.StatusCode})
	}

	var rpcResp Response
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return daerr.Wrap(method, &daerr.StatusError{Code: resp.StatusCode, Body: truncate(body)})
		}
		return daerr.Retriable(method, fmt.Errorf("failed to decode response: %w", err))
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return daerr.Retriable(method, fmt.Errorf("failed to decode result: %w", err))
	}
	return nil
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
