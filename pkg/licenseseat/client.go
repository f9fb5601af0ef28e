// Package licenseseat is the core of a client-side software licensing
// runtime: it activates a license key against a remote service, keeps
// it validated over time, caches a signed offline token so the
// application can keep running without network, and exposes entitlement
// queries that gate application features.
//
// The Client is the Lifecycle Coordinator: the state engine that
// decides what the current license status is right now given network
// weather, wall-clock drift, cached artifacts and the configured
// offline policy. Concrete HTTP transport, DI bindings, CLI wrappers and
// a process-wide singleton are deliberately left to outer bindings; see
// Default/SetDefault for the thin singleton this package does provide.
package licenseseat

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/licenseseat/sdk-go/pkg/licenseseat/api"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/cache"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/cache/persist"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/cache/persist/filepersist"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/clockmonitor"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/crypto"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/eventbus"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/model"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/transport"
)

// stateSnapshot is the immutable value swapped into Client.stateSnap on
// every state transition.
type stateSnapshot struct {
	state  State
	reason string
}

// ActivateOptions customizes Activate.
type ActivateOptions struct {
	DeviceID string
	Metadata map[string]any
}

// ValidateOptions customizes Validate.
type ValidateOptions struct {
	DeviceID string
}

// Client is the Lifecycle Coordinator. Construct with New.
type Client struct {
	cfg   Config
	cache *cache.Cache
	bus   *eventbus.Bus
	api   *api.Client
	clock *clockmonitor.Monitor

	// opMu serializes activate/deactivate/reset/validate state
	// transitions; cache locking is internal to *cache.Cache and is
	// never acquired before opMu, satisfying the spec's fixed nesting
	// order (state -> cache).
	opMu sync.Mutex
	opSF singleflight.Group

	// stateSnap holds the current *stateSnapshot and is only ever
	// replaced (never mutated in place) via setState, so get_status,
	// get_current_license, check_entitlement and has_entitlement can
	// read it without acquiring opMu and without blocking on an
	// in-flight activate/deactivate/validate/reset.
	stateSnap atomic.Value

	deviceID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	timerMu           sync.Mutex
	autoValidateTimer *time.Ticker
	heartbeatTimer    *time.Ticker
	timerStop         chan struct{}
	timersRunning     bool
}

// New constructs a Client from cfg. If persister is nil, a default
// file-backed persister under the OS user cache directory is used. If
// AutoInitialize is true (the default), Initialize is called before New
// returns.
func New(cfg Config, persister persist.Persister, adapter transport.Adapter) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultConfig().APIBaseURL
	}
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = DefaultConfig().MaxClockSkew
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultConfig().HTTPTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}
	if cfg.StoragePrefix == "" {
		cfg.StoragePrefix = DefaultConfig().StoragePrefix
	}

	if persister == nil {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		persister = filepersist.New(filepath.Join(dir, cfg.StoragePrefix+"cache.json"))
	}
	if adapter == nil {
		adapter = transport.New(cfg.HTTPTimeout)
	}

	bus := eventbus.New(func(format string, args ...any) {
		if cfg.Debug {
			cfg.logf(format, args...)
		}
	})
	c := &Client{
		cfg: cfg,
		bus: bus,
	}
	c.setState(StateUninitialized, "")
	c.cache = cache.New(persister, func(format string, args ...any) { cfg.logf(format, args...) })
	c.clock = clockmonitor.New(&cacheClockStore{cache: c.cache}, int64(cfg.MaxClockSkew/time.Millisecond))
	c.api = api.New(api.Config{
		Adapter:     adapter,
		Bus:         bus,
		BaseURL:     cfg.APIBaseURL,
		APIKey:      cfg.APIKey,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		HTTPTimeout: cfg.HTTPTimeout,
	})
	c.ctx, c.cancel = context.WithCancel(context.Background())

	if cfg.AutoInitialize {
		c.Initialize()
	}

	return c, nil
}

// cacheClockStore adapts the Cache's last-seen slot to clockmonitor.Store
// so the clock observation is persisted through the same cache blob
// instead of a second file.
type cacheClockStore struct {
	cache *cache.Cache
}

func (s *cacheClockStore) Load() (int64, bool, error) {
	v := s.cache.GetLastSeenTimestamp()
	return v, v != 0, nil
}

func (s *cacheClockStore) Save(v int64) error {
	s.cache.SetLastSeenTimestamp(v)
	return nil
}

// setState publishes a new state snapshot. Callers must hold opMu; the
// publish itself is a single atomic store, so concurrent lock-free
// readers never observe a torn (state, reason) pair.
func (c *Client) setState(state State, reason string) {
	c.stateSnap.Store(&stateSnapshot{state: state, reason: reason})
}

// getState is a lock-free read of the current state snapshot.
func (c *Client) getState() (State, string) {
	snap, _ := c.stateSnap.Load().(*stateSnapshot)
	if snap == nil {
		return StateUninitialized, ""
	}
	return snap.state, snap.reason
}

// Events returns the Event Bus callers subscribe to.
func (c *Client) Events() *eventbus.Bus { return c.bus }

// Initialize loads the cache and, if a license is present, starts the
// background timers. If an unexpired offline token is cached, the
// session transitions directly to OfflineActive pending the next online
// recheck. Idempotent.
func (c *Client) Initialize() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	lic := c.cache.GetLicense()
	if lic == nil {
		c.setState(StateNoLicense, "")
		return
	}

	c.deviceID = lic.DeviceID
	c.bus.Emit(eventbus.TopicLicenseLoaded, lic)

	if tok := c.cache.GetOfflineToken(); tok != nil && c.offlineTokenFresh(tok) {
		c.setState(StateOfflineActive, "")
	} else {
		c.setState(StateActive, "")
	}
	c.startTimersLocked()
}

// Activate binds licenseKey to this device.
func (c *Client) Activate(ctx context.Context, licenseKey string, opts ActivateOptions) (*model.License, error) {
	v, err, _ := c.opSF.Do("activate", func() (any, error) {
		c.opMu.Lock()
		defer c.opMu.Unlock()
		return c.doActivate(ctx, licenseKey, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.License), nil
}

func (c *Client) doActivate(ctx context.Context, licenseKey string, opts ActivateOptions) (*model.License, error) {
	if err := c.cfg.validate(); err != nil {
		return nil, err
	}

	c.bus.Emit(eventbus.TopicActivationStart, licenseKey)

	deviceID := ResolveDeviceID(opts.DeviceID)
	resp, err := c.api.Activate(ctx, c.cfg.ProductSlug, licenseKey, api.ActivateRequest{
		DeviceID: deviceID,
		Metadata: opts.Metadata,
	})
	if err != nil {
		c.setState(StateActivationFailed, "")
		c.bus.Emit(eventbus.TopicActivationError, err)
		return nil, err
	}

	lic := resp.License
	lic.Key = licenseKey
	lic.ProductSlug = c.cfg.ProductSlug
	lic.DeviceID = deviceID
	c.cache.SetLicense(lic)
	c.deviceID = deviceID
	c.setState(StateActive, "")

	c.bus.Emit(eventbus.TopicActivationOK, &lic)

	// Best-effort: a failed offline-token fetch does not fail
	// activation itself.
	c.fetchOfflineTokenBestEffort(ctx)

	c.startTimersLocked()

	return &lic, nil
}

// Validate checks licenseKey's current status, online if possible and
// allowed to fall back to an offline token if not.
func (c *Client) Validate(ctx context.Context, licenseKey string, opts ValidateOptions) (*model.ValidationResult, error) {
	v, err, _ := c.opSF.Do("validate:"+licenseKey, func() (any, error) {
		c.opMu.Lock()
		defer c.opMu.Unlock()
		return c.doValidate(ctx, licenseKey, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.ValidationResult), nil
}

func (c *Client) doValidate(ctx context.Context, licenseKey string, opts ValidateOptions) (*model.ValidationResult, error) {
	if err := c.cfg.validate(); err != nil {
		return nil, err
	}

	c.bus.Emit(eventbus.TopicValidationStart, licenseKey)

	deviceID := opts.DeviceID
	if deviceID == "" {
		deviceID = c.deviceID
	}

	tryOnlineFirst := c.cfg.OfflineFallbackMode != OfflineFallbackAlways || c.cache.GetOfflineToken() == nil || !c.offlineTokenFresh(c.cache.GetOfflineToken())

	if tryOnlineFirst {
		result, apiErr := c.validateOnline(ctx, licenseKey, deviceID)
		if apiErr == nil {
			return result, nil
		}

		var e *api.Error
		if errors.As(apiErr, &e) && e.IsAuth() {
			c.setState(StateInvalid, ReasonAuth)
			c.stopTimersLocked()
			c.bus.Emit(eventbus.TopicValidationAuthFailed, e)
			return nil, apiErr
		}

		if errors.As(apiErr, &e) && e.IsNetwork() && c.cfg.OfflineFallbackMode != OfflineFallbackDisabled {
			return c.validateOffline(deviceID, licenseKey)
		}

		c.bus.Emit(eventbus.TopicValidationError, apiErr)
		return nil, apiErr
	}

	return c.validateOffline(deviceID, licenseKey)
}

func (c *Client) validateOnline(ctx context.Context, licenseKey, deviceID string) (*model.ValidationResult, error) {
	resp, err := c.api.Validate(ctx, c.cfg.ProductSlug, licenseKey, api.ValidateRequest{
		DeviceID:    deviceID,
		ProductSlug: c.cfg.ProductSlug,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Valid {
		if resp.Code == "license_revoked" || resp.Code == "license_suspended" {
			c.setState(StateInvalid, ReasonRevoked)
			c.stopTimersLocked()
			c.bus.Emit(eventbus.TopicLicenseRevoked, resp)
		}
		result := &model.ValidationResult{Valid: false, Code: resp.Code, Message: resp.Message, Warnings: resp.Warnings}
		c.cache.SetLastValidation(*result)
		c.bus.Emit(eventbus.TopicValidationFailed, result)
		return result, nil
	}

	now := time.Now()
	if resp.License != nil {
		lic := *resp.License
		lic.Key = licenseKey
		lic.DeviceID = deviceID
		lic.ProductSlug = c.cfg.ProductSlug
		lic.LastValidatedAt = &now
		c.cache.SetLicense(lic)
	}

	result := &model.ValidationResult{
		Valid:              true,
		Code:               resp.Code,
		Message:            resp.Message,
		ActiveEntitlements: resp.ActiveEntitlements,
		Warnings:           resp.Warnings,
	}
	c.cache.SetLastValidation(*result)
	c.setState(StateActive, "")
	c.bus.Emit(eventbus.TopicValidationOK, result)
	return result, nil
}

// validateOffline runs the offline verification cascade against the
// cached offline token for licenseKey and deviceID.
func (c *Client) validateOffline(deviceID, licenseKey string) (*model.ValidationResult, error) {
	tok := c.cache.GetOfflineToken()
	if tok == nil {
		return c.offlineFailure(ErrOfflineNoToken, "no cached offline token")
	}

	now := time.Now()
	if c.clock.Observe(now.UnixMilli()) {
		return c.offlineFailure(ErrClockTamper, "clock tamper detected")
	}

	if tok.LicenseKey != licenseKey || tok.DeviceID != deviceID {
		return c.offlineFailure(ErrLicenseMismatch, "offline token does not match cached license")
	}

	nowUnix := now.Unix()
	if nowUnix < tok.NotBefore {
		return c.offlineFailure(ErrOfflineNotYetValid, "offline token not yet valid")
	}
	if nowUnix > tok.ExpiresAt {
		return c.offlineFailure(ErrOfflineExpired, "offline token expired")
	}
	if c.cfg.MaxOfflineDays > 0 {
		maxAge := int64(c.cfg.MaxOfflineDays) * 86400
		if nowUnix-tok.IssuedAt > maxAge {
			return c.offlineFailure(ErrOfflineExpired, "offline token exceeds max_offline_days")
		}
	}

	key := c.cache.GetPublicKey(tok.SigningKeyID)
	if key == nil {
		fetched, err := c.api.FetchSigningKey(c.ctx, tok.SigningKeyID)
		if err != nil {
			return c.offlineFailure(ErrNoPublicKey, "signing key unavailable")
		}
		keyBytes, decErr := decodeKey(fetched.PublicKey)
		if decErr != nil {
			return c.offlineFailure(ErrNoPublicKey, "signing key malformed")
		}
		pk := model.PublicKey{KeyID: fetched.KeyID, Algorithm: fetched.Algorithm, Bytes: keyBytes}
		c.cache.SetPublicKey(pk)
		key = &pk
	}

	valid, err := crypto.Verify(key.Bytes, tok.Signature.Value, tok.Canonical)
	if err != nil || !valid {
		c.bus.Emit(eventbus.TopicOfflineVerificationFailed, tok)
		return c.offlineFailure(ErrSignatureInvalid, "offline token signature invalid")
	}

	c.bus.Emit(eventbus.TopicOfflineVerified, tok)

	entitlements := make([]model.Entitlement, 0, len(tok.Entitlements))
	for _, e := range tok.Entitlements {
		if e.ExpiresAt != nil {
			t := time.Unix(*e.ExpiresAt, 0)
			if t.Before(now) {
				continue
			}
			entitlements = append(entitlements, model.Entitlement{Key: e.Key, ExpiresAt: &t})
		} else {
			entitlements = append(entitlements, model.Entitlement{Key: e.Key})
		}
	}

	result := &model.ValidationResult{Valid: true, Offline: true, ActiveEntitlements: entitlements}
	c.cache.SetLastValidation(*result)
	c.setState(StateOfflineActive, "")
	c.bus.Emit(eventbus.TopicValidationOfflineOK, result)
	return result, nil
}

// offlineFailure converts a sentinel offline-cascade error into a failed
// ValidationResult; per the error taxonomy, crypto/offline errors never
// propagate to the caller as a Go error.
func (c *Client) offlineFailure(cause error, message string) (*model.ValidationResult, error) {
	result := &model.ValidationResult{Valid: false, Offline: true, Code: offlineFailureCode(cause), Message: message}
	c.cache.SetLastValidation(*result)
	c.bus.Emit(eventbus.TopicValidationOfflineFailed, result)
	return result, nil
}

// offlineFailureCode maps an offline-cascade sentinel error to the wire
// code spec.md's offline verification steps name.
func offlineFailureCode(cause error) string {
	switch {
	case errors.Is(cause, ErrOfflineNoToken):
		return "offline_no_token"
	case errors.Is(cause, ErrClockTamper):
		return "clock_tamper"
	case errors.Is(cause, ErrLicenseMismatch):
		return "license_mismatch"
	case errors.Is(cause, ErrOfflineNotYetValid), errors.Is(cause, ErrOfflineExpired):
		return "expired"
	case errors.Is(cause, ErrNoPublicKey):
		return "no_public_key"
	case errors.Is(cause, ErrSignatureInvalid):
		return "signature_invalid"
	default:
		return "invalid"
	}
}

func decodeKey(b64 string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(b64); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(b64)
}

// Deactivate removes the current activation, best-effort against the
// server, and always clears local state.
func (c *Client) Deactivate(ctx context.Context) error {
	_, err, _ := c.opSF.Do("deactivate", func() (any, error) {
		c.opMu.Lock()
		defer c.opMu.Unlock()
		return nil, c.doDeactivate(ctx)
	})
	return err
}

func (c *Client) doDeactivate(ctx context.Context) error {
	lic := c.cache.GetLicense()
	if lic == nil {
		return ErrNoLicense
	}

	c.bus.Emit(eventbus.TopicDeactivationStart, lic)

	_, err := c.api.Deactivate(ctx, c.cfg.ProductSlug, lic.Key, api.DeactivateRequest{DeviceID: lic.DeviceID})
	if err != nil {
		var apiErr *api.Error
		if !(errors.As(err, &apiErr) && apiErr.Code == "not_found") {
			c.bus.Emit(eventbus.TopicDeactivationError, err)
		}
	}

	c.cache.ClearLicense()
	c.cache.ClearOfflineToken()
	c.setState(StateNoLicense, "")
	c.stopTimersLocked()
	c.bus.Emit(eventbus.TopicDeactivationOK, nil)
	return nil
}

// Reset stops timers, wipes the cache entirely, and returns to
// Uninitialized.
func (c *Client) Reset() {
	c.opSF.Do("reset", func() (any, error) {
		c.opMu.Lock()
		defer c.opMu.Unlock()
		c.stopTimersLocked()
		c.cache.ClearAll()
		c.clock.Reset()
		c.setState(StateUninitialized, "")
		c.bus.Emit(eventbus.TopicSDKReset, nil)
		return nil, nil
	})
}

// PurgeCachedLicense clears the license, offline token and public key
// without contacting the server, for an external logout/revocation
// notification.
func (c *Client) PurgeCachedLicense() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.cache.ClearLicense()
	c.cache.ClearOfflineToken()
	c.setState(StateNoLicense, "")
	c.stopTimersLocked()
}

// Status returns a pure, I/O-free snapshot of the current session
// status.
func (c *Client) Status() model.LicenseStatus {
	state, reason := c.getState()

	details := map[string]any{}
	if reason != "" {
		details["reason"] = reason
	}
	if len(details) == 0 {
		details = nil
	}

	return model.LicenseStatus{StatusType: derivedStatusType(state), Details: details}
}

// CurrentLicense returns a defensive copy of the cached license, or nil.
func (c *Client) CurrentLicense() *model.License {
	return c.cache.GetLicense()
}

// licenseValid implements the license-valid predicate used by
// CheckEntitlement: the last ValidationResult being valid, or (in
// OfflineActive) the presence of a fresh offline token.
func (c *Client) licenseValid() bool {
	state, _ := c.getState()

	if state == StateOfflineActive {
		tok := c.cache.GetOfflineToken()
		return tok != nil && c.offlineTokenFresh(tok)
	}
	if lv := c.cache.GetLastValidation(); lv != nil {
		return lv.Valid
	}
	return state == StateActive
}

// CheckEntitlement evaluates whether key is currently active.
func (c *Client) CheckEntitlement(key string) model.EntitlementCheck {
	lic := c.cache.GetLicense()
	if lic == nil {
		return model.EntitlementCheck{Active: false, Reason: model.ReasonNoLicense}
	}
	if !c.licenseValid() {
		return model.EntitlementCheck{Active: false, Reason: model.ReasonNoLicense}
	}

	entitlements := lic.ActiveEntitlements
	if lv := c.cache.GetLastValidation(); lv != nil && lv.ActiveEntitlements != nil {
		entitlements = lv.ActiveEntitlements
	}

	for _, e := range entitlements {
		if e.Key != key {
			continue
		}
		if !e.Active(time.Now()) {
			return model.EntitlementCheck{Active: false, Reason: model.ReasonExpired}
		}
		return model.EntitlementCheck{Active: true, Reason: model.ReasonActive}
	}
	return model.EntitlementCheck{Active: false, Reason: model.ReasonNotFound}
}

// HasEntitlement is shorthand for CheckEntitlement(key).Active.
func (c *Client) HasEntitlement(key string) bool {
	return c.CheckEntitlement(key).Active
}

// Heartbeat pings the server if a license is active; a no-op otherwise.
func (c *Client) Heartbeat(ctx context.Context) error {
	lic := c.cache.GetLicense()
	if lic == nil {
		return nil
	}
	if err := c.api.Heartbeat(ctx, c.cfg.ProductSlug, lic.Key); err != nil {
		c.bus.Emit(eventbus.TopicHeartbeatError, err)
		return err
	}
	c.bus.Emit(eventbus.TopicHeartbeatOK, nil)
	return nil
}

// TestAuth checks the API key against the health endpoint.
func (c *Client) TestAuth(ctx context.Context) bool {
	c.bus.Emit(eventbus.TopicAuthTestStart, nil)
	if _, err := c.api.Health(ctx); err != nil {
		c.bus.Emit(eventbus.TopicAuthTestError, err)
		return false
	}
	c.bus.Emit(eventbus.TopicAuthTestOK, nil)
	return true
}

// Close stops background timers and releases resources. It does not
// touch the cache.
func (c *Client) Close() {
	c.opMu.Lock()
	c.stopTimersLocked()
	c.cancel()
	c.opMu.Unlock()
	c.wg.Wait()
}

func (c *Client) offlineTokenFresh(tok *model.OfflineToken) bool {
	now := time.Now().Unix()
	if now > tok.ExpiresAt {
		return false
	}
	if c.cfg.MaxOfflineDays > 0 && now-tok.IssuedAt > int64(c.cfg.MaxOfflineDays)*86400 {
		return false
	}
	return true
}

func (c *Client) fetchOfflineTokenBestEffort(ctx context.Context) {
	c.bus.Emit(eventbus.TopicOfflineFetching, nil)
	resp, err := c.api.FetchOfflineToken(ctx, c.cfg.ProductSlug, c.deviceIDOrLicenseKey())
	if err != nil {
		c.bus.Emit(eventbus.TopicOfflineFetchError, err)
		return
	}
	tok := resp.Token
	tok.Signature = resp.Signature
	tok.Canonical = []byte(resp.Canonical)
	c.cache.SetOfflineToken(tok)
	c.bus.Emit(eventbus.TopicOfflineFetched, &tok)
	c.bus.Emit(eventbus.TopicOfflineReady, &tok)
}

func (c *Client) deviceIDOrLicenseKey() string {
	if lic := c.cache.GetLicense(); lic != nil {
		return lic.Key
	}
	return ""
}

