// Package api is the API Layer: typed request/response shapes for every
// license-server endpoint, executed through the HTTP Adapter port with
// exponential-backoff-with-jitter retries and edge-triggered
// network-online/offline event emission.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/licenseseat/sdk-go/pkg/licenseseat/eventbus"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/transport"
)

// Client is the API Layer.
type Client struct {
	adapter     transport.Adapter
	bus         *eventbus.Bus
	baseURL     string
	apiKey      string
	maxRetries  int
	retryDelay  time.Duration
	httpTimeout time.Duration

	mu     sync.Mutex
	online bool // last known network state, for edge-triggered events
}

// Config configures a Client.
type Config struct {
	Adapter     transport.Adapter
	Bus         *eventbus.Bus
	BaseURL     string
	APIKey      string
	MaxRetries  int
	RetryDelay  time.Duration
	HTTPTimeout time.Duration
}

// New constructs a Client. The network-state flag starts optimistic
// (online) so the very first failure, if retryable, can emit
// network:offline without a spurious network:online beforehand.
func New(cfg Config) *Client {
	return &Client{
		adapter:     cfg.Adapter,
		bus:         cfg.Bus,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		httpTimeout: cfg.HTTPTimeout,
		online:      true,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Accept":        "application/json",
		"Content-Type":  "application/json",
	}
}

// execute runs one logical operation (method, url, optional body),
// retrying retryable failures with exponential backoff plus up to 10%
// jitter, up to 1+maxRetries total attempts. It decodes a successful
// response into out (if non-nil) and emits network:online / offline
// transitions at the edges.
func (c *Client) execute(ctx context.Context, method, url string, body []byte, out any) error {
	var lastErr *Error
	sawRetryableFailure := false

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var resp transport.Response
		var err error
		if method == http.MethodGet {
			resp, err = c.adapter.Get(ctx, url, c.headers())
		} else {
			resp, err = c.adapter.Post(ctx, url, c.headers(), body)
		}
		if err != nil {
			// The port contract says no error should cross it; treat
			// one as a network failure defensively.
			resp = transport.Response{Status: 0, Body: []byte(err.Error())}
		}

		if resp.Status >= 200 && resp.Status < 300 {
			c.noteOnline()
			if out != nil && len(resp.Body) > 0 {
				if jsonErr := json.Unmarshal(resp.Body, out); jsonErr != nil {
					return fmt.Errorf("api: decode response: %w", jsonErr)
				}
			}
			return nil
		}

		apiErr := c.toError(resp)
		lastErr = apiErr

		if !isRetryable(resp.Status) {
			return apiErr
		}

		sawRetryableFailure = true
	}

	if sawRetryableFailure {
		c.noteOffline()
	}
	return lastErr
}

func (c *Client) backoff(i int) time.Duration {
	base := float64(c.retryDelay) * pow2(i)
	jitter := rand.Float64() * 0.1 * base
	return time.Duration(base + jitter)
}

func pow2(i int) float64 {
	result := 1.0
	for ; i > 0; i-- {
		result *= 2
	}
	return result
}

func (c *Client) toError(resp transport.Response) *Error {
	code, message := "", string(resp.Body)
	var decoded struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(resp.Body, &decoded) == nil {
		code, message = decoded.Code, decoded.Message
	}
	return &Error{
		Status:    resp.Status,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(resp.Status),
		Body:      resp.Body,
	}
}

// noteOnline emits network:online exactly once per offline->online edge.
func (c *Client) noteOnline() {
	c.mu.Lock()
	wasOffline := !c.online
	c.online = true
	c.mu.Unlock()

	if wasOffline && c.bus != nil {
		c.bus.Emit(eventbus.TopicNetworkOnline, nil)
	}
}

// noteOffline emits network:offline exactly once per online->offline
// edge, called only after retries are exhausted from a retryable
// failure.
func (c *Client) noteOffline() {
	c.mu.Lock()
	wasOnline := c.online
	c.online = false
	c.mu.Unlock()

	if wasOnline && c.bus != nil {
		c.bus.Emit(eventbus.TopicNetworkOffline, nil)
	}
}

func (c *Client) url(parts ...string) string {
	return c.baseURL + "/" + strings.Join(parts, "/")
}

// Activate calls POST /products/{slug}/licenses/{key}/activate.
func (c *Client) Activate(ctx context.Context, productSlug, licenseKey string, req ActivateRequest) (*ActivateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("api: marshal activate request: %w", err)
	}
	var out ActivateResponse
	if err := c.execute(ctx, http.MethodPost, c.url("products", productSlug, "licenses", licenseKey, "activate"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deactivate calls POST .../deactivate.
func (c *Client) Deactivate(ctx context.Context, productSlug, licenseKey string, req DeactivateRequest) (*DeactivateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("api: marshal deactivate request: %w", err)
	}
	var out DeactivateResponse
	if err := c.execute(ctx, http.MethodPost, c.url("products", productSlug, "licenses", licenseKey, "deactivate"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate calls POST .../validate.
func (c *Client) Validate(ctx context.Context, productSlug, licenseKey string, req ValidateRequest) (*ValidateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("api: marshal validate request: %w", err)
	}
	var out ValidateResponse
	if err := c.execute(ctx, http.MethodPost, c.url("products", productSlug, "licenses", licenseKey, "validate"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchOfflineToken calls POST .../offline-token.
func (c *Client) FetchOfflineToken(ctx context.Context, productSlug, licenseKey string) (*OfflineTokenResponse, error) {
	var out OfflineTokenResponse
	if err := c.execute(ctx, http.MethodPost, c.url("products", productSlug, "licenses", licenseKey, "offline-token"), []byte("{}"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSigningKey calls GET /signing-keys/{kid}.
func (c *Client) FetchSigningKey(ctx context.Context, kid string) (*SigningKeyResponse, error) {
	var out SigningKeyResponse
	if err := c.execute(ctx, http.MethodGet, c.url("signing-keys", kid), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Heartbeat calls POST /products/{slug}/licenses/{key}/heartbeat.
func (c *Client) Heartbeat(ctx context.Context, productSlug, licenseKey string) error {
	return c.execute(ctx, http.MethodPost, c.url("products", productSlug, "licenses", licenseKey, "heartbeat"), []byte("{}"), nil)
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.execute(ctx, http.MethodGet, c.url("health"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
