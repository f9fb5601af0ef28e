package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licenseseat/sdk-go/pkg/licenseseat/eventbus"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/transport"
)

// stubAdapter replays a scripted sequence of responses per call, the
// way the teacher's service tests stub a repository instead of hitting
// a real database.
type stubAdapter struct {
	responses []transport.Response
	calls     int
}

func (s *stubAdapter) next() transport.Response {
	if s.calls >= len(s.responses) {
		return s.responses[len(s.responses)-1]
	}
	r := s.responses[s.calls]
	s.calls++
	return r
}

func (s *stubAdapter) Get(ctx context.Context, url string, headers map[string]string) (transport.Response, error) {
	return s.next(), nil
}

func (s *stubAdapter) Post(ctx context.Context, url string, headers map[string]string, body []byte) (transport.Response, error) {
	return s.next(), nil
}

func newTestClient(adapter transport.Adapter, bus *eventbus.Bus) *Client {
	return New(Config{
		Adapter:     adapter,
		Bus:         bus,
		BaseURL:     "https://example.test",
		APIKey:      "key-1",
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
		HTTPTimeout: time.Second,
	})
}

func TestValidate_SuccessDecodesResponse(t *testing.T) {
	body, _ := json.Marshal(ValidateResponse{Valid: true, Code: "ok"})
	adapter := &stubAdapter{responses: []transport.Response{{Status: 200, Body: body}}}
	c := newTestClient(adapter, nil)

	resp, err := c.Validate(context.Background(), "acme", "KEY-1", ValidateRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "ok", resp.Code)
}

func TestExecute_RetriesRetryableStatusesThenSucceeds(t *testing.T) {
	body, _ := json.Marshal(HealthResponse{Status: "ok"})
	adapter := &stubAdapter{responses: []transport.Response{
		{Status: 503},
		{Status: 429},
		{Status: 200, Body: body},
	}}
	c := newTestClient(adapter, nil)

	_, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, adapter.calls)
}

func TestExecute_NonRetryableStatusFailsImmediately(t *testing.T) {
	adapter := &stubAdapter{responses: []transport.Response{
		{Status: 404, Body: []byte(`{"code":"not_found","message":"no such license"}`)},
		{Status: 200}, // would succeed if (wrongly) retried
	}}
	c := newTestClient(adapter, nil)

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, adapter.calls)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.False(t, apiErr.Retryable)
}

func TestExecute_ExhaustedRetriesReturnsLastError(t *testing.T) {
	adapter := &stubAdapter{responses: []transport.Response{
		{Status: 503}, {Status: 503}, {Status: 503}, {Status: 503},
	}}
	c := newTestClient(adapter, nil)

	_, err := c.Health(context.Background())
	require.Error(t, err)
	// maxRetries=3 means 1 initial attempt + 3 retries = 4 total calls.
	assert.Equal(t, 4, adapter.calls)
}

func TestExecute_EmitsNetworkOfflineThenOnline(t *testing.T) {
	bus := eventbus.New(nil)
	var events []string
	bus.On(eventbus.TopicNetworkOffline, func(payload any) { events = append(events, "offline") })
	bus.On(eventbus.TopicNetworkOnline, func(payload any) { events = append(events, "online") })

	adapter := &stubAdapter{responses: []transport.Response{
		{Status: 0}, {Status: 0}, {Status: 0}, {Status: 0},
	}}
	c := newTestClient(adapter, bus)
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"offline"}, events, "retries exhausted on a network failure should emit exactly one offline event")

	adapter.calls = 0
	adapter.responses = []transport.Response{{Status: 200, Body: []byte(`{}`)}}
	_, err = c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"offline", "online"}, events, "a subsequent success on the same client should emit exactly one online edge")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{0, true},
		{408, true},
		{429, true},
		{500, false},
		{502, true},
		{599, true},
		{600, false},
		{404, false},
		{200, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryable(tt.status), "status %d", tt.status)
	}
}

func TestError_IsNetworkAndIsAuth(t *testing.T) {
	assert.True(t, (&Error{Status: 0}).IsNetwork())
	assert.True(t, (&Error{Status: 408}).IsNetwork())
	assert.False(t, (&Error{Status: 500}).IsNetwork())

	assert.True(t, (&Error{Status: 401}).IsAuth())
	assert.True(t, (&Error{Status: 403}).IsAuth())
	assert.False(t, (&Error{Status: 404}).IsAuth())
}
