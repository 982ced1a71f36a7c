package wholesalemarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kilianp07/cew/auth"
	"github.com/kilianp07/cew/core/model"
)

// DefaultBaseURL is the RTE wholesale market endpoint.
const DefaultBaseURL = "https://digital.iservices.rte-france.com/open_api/wholesale_market/v2/france_power_exchanges"

// Client reads the EPEX day-ahead prices published by RTE.
type Client struct {
	baseURL string
	auth    *auth.ClientCred
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New returns a Client authenticating with authClient.
func New(authClient *auth.ClientCred, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		auth:    authClient,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the wholesale prices for [start, end).
//
// Errors:
//   - the request cannot be built or the auth header cannot be set;
//   - the API answers with a status other than 200;
//   - the body cannot be decoded.
func (c *Client) Fetch(ctx context.Context, start, end time.Time) ([]model.PriceInterval, error) {
	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.auth != nil {
		if err := c.auth.SetAuthHeader(ctx, req); err != nil {
			return nil, fmt.Errorf("failed to set auth header: %w", err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	var r Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return r.Intervals()
}
