// Package httpapi provides shared request plumbing for the backend
// collaborators: base-URL handling, request signing, JSON helpers, and
// the error taxonomy used across probes, polls, and mutations.
package httpapi

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

// Signer attaches authentication material to an outgoing request.
// Token issuance and refresh live outside this module.
type Signer interface {
	Sign(req *http.Request) error
}

// BearerSigner signs requests with a bearer token obtained from Token.
type BearerSigner struct {
	Token func() string
}

func (s BearerSigner) Sign(req *http.Request) error {
	if s.Token == nil {
		return nil
	}
	if tok := strings.TrimSpace(s.Token()); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return nil
}

// NopSigner leaves requests unsigned.
type NopSigner struct{}

func (NopSigner) Sign(*http.Request) error { return nil }

// Client is a thin JSON client shared by the collaborator clients.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     Signer
}

// NewClient creates a Client for the given base URL. A zero timeout
// defaults to 30 seconds.
func NewClient(baseURL string, timeout time.Duration, signer Signer) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if signer == nil {
		signer = NopSigner{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		signer:     signer,
	}
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// DoJSON issues a request with an optional JSON body and decodes the JSON
// response into out (if out is non-nil). Non-2xx responses become a
// *StatusError carrying the status code and a truncated body.
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, header http.Header, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if err := c.signer.Sign(req); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, header http.Header, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, query, header, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, header http.Header, in, out any) error {
	return c.DoJSON(ctx, http.MethodPost, path, nil, header, in, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, header http.Header, in, out any) error {
	return c.DoJSON(ctx, http.MethodPut, path, nil, header, in, out)
}
