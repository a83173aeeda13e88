// Package api is the HTTP transport for the summarizer backend: request
// building, bearer-token attachment, content-type-aware response decoding,
// and the client error taxonomy. Session handling lives one level up in the
// session package; this layer never retries or refreshes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Request describes one backend call. Body, when non-nil, is JSON-encoded.
// Token, when non-empty, is attached as a bearer credential.
type Request struct {
	Method string
	URL    string
	Body   any
	Token  string
}

// Response is a completed backend response with the body fully read.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the response has a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Empty reports whether the response carries no body (204 or zero length).
func (r *Response) Empty() bool {
	return r.StatusCode == http.StatusNoContent || len(r.Body) == 0
}

// IsJSON reports whether the response declares a JSON body. Callers must not
// assume JSON unconditionally; non-JSON bodies stay raw bytes.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType, "application/json")
}

// Decode unmarshals a JSON body into out. An empty body decodes to nothing.
func (r *Response) Decode(out any) error {
	if r.Empty() {
		return nil
	}
	if !r.IsJSON() {
		return fmt.Errorf("expected JSON response, got %q", r.ContentType)
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Err converts a non-2xx response into a RequestError. It returns nil for
// 2xx responses.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &RequestError{StatusCode: r.StatusCode, Message: decodeErrorMessage(r.Body)}
}

// Client performs HTTP calls against the API and auth endpoint prefixes.
type Client struct {
	base   string
	auth   string
	client *http.Client
}

// New creates a client. baseURL is the API prefix (e.g. .../api/v1), authURL
// the auth prefix (e.g. .../auth). A zero timeout means no request timeout.
func New(baseURL, authURL string, timeout time.Duration) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		auth:   strings.TrimRight(authURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Endpoint joins a path onto the API prefix.
func (c *Client) Endpoint(path string) string {
	return c.base + "/" + strings.TrimLeft(path, "/")
}

// AuthEndpoint joins a path onto the auth prefix.
func (c *Client) AuthEndpoint(path string) string {
	return c.auth + "/" + strings.TrimLeft(path, "/")
}

// Do performs the request and reads the full response body. Transport
// failures come back as *NetworkError. Non-2xx statuses are not errors at
// this layer; callers inspect StatusCode or use Response.Err.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
