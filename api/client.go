// Package api is the storefront's client of the remote REST backend. Each
// endpoint is one method; the credential it needs is declared with the
// endpoint rather than inferred from the URL.
package api

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"musa/middleware"
)

// Capability is the credential an endpoint is called with.
type Capability int

const (
	// Anonymous calls never carry a token (login, registration).
	Anonymous Capability = iota
	// Public calls carry the user token when the caller has one.
	Public
	// User calls require the user token.
	User
	// Admin calls require the admin token.
	Admin
)

func (c Capability) String() string {
	switch c {
	case Anonymous:
		return "anonymous"
	case Public:
		return "public"
	case User:
		return "user"
	case Admin:
		return "admin"
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// Caller holds the tokens of the session a call is made for.
type Caller struct {
	UserToken  string
	AdminToken string
}

func (c Caller) token(capability Capability) (string, error) {
	switch capability {
	case Public:
		return c.UserToken, nil
	case User:
		if c.UserToken == "" {
			return "", fmt.Errorf("%w: user token", ErrMissingCredential)
		}
		return c.UserToken, nil
	case Admin:
		if c.AdminToken == "" {
			return "", fmt.Errorf("%w: admin token", ErrMissingCredential)
		}
		return c.AdminToken, nil
	}
	return "", nil
}

// Envelope is the common part of every backend response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type Client struct {
	BaseURL *url.URL
	HTTP    *http.Client
	// Timeout bounds each call. Zero leaves it to the caller's context.
	Timeout time.Duration
}

// NewClient returns a client for baseURL. A nil httpClient gets a traced
// client without a timeout; callers bound requests through the context.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{BaseURL: u, HTTP: httpClient}, nil
}

// request is one outgoing call.
type request struct {
	capability  Capability
	method      string
	path        string
	body        io.Reader
	contentType string
}

func (c *Client) send(ctx context.Context, caller Caller, r request, out any) error {
	token, err := caller.token(r.capability)
	if err != nil {
		return err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	u := c.BaseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(r.path, "/")})
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return &TransportError{Method: r.method, Path: r.path, Err: err}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.Header.Set(middleware.HeaderCorrelationID, cid)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &TransportError{Method: r.method, Path: r.path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: r.method, Path: r.path, Err: err}
	}

	var env Envelope
	envErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if envErr != nil {
			msg = strings.TrimSpace(string(raw))
		}
		return &ServerError{Status: resp.StatusCode, Message: msg}
	}
	if envErr != nil {
		return &DecodeError{Path: r.path, Err: envErr}
	}
	if !env.Success {
		return &ServerError{Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Path: r.path, Err: err}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, caller Caller, capability Capability, path string, out any) error {
	return c.send(ctx, caller, request{capability: capability, method: http.MethodGet, path: path}, out)
}

func (c *Client) sendJSON(ctx context.Context, caller Caller, capability Capability, method, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s body: %w", path, err)
	}
	return c.send(ctx, caller, request{
		capability:  capability,
		method:      method,
		path:        path,
		body:        bytes.NewReader(b),
		contentType: "application/json",
	}, out)
}
