// Package cache is the License Cache component: a single-writer,
// multi-reader in-memory store of the license, offline token,
// public-key-by-kid slot and last-seen timestamp, snapshotted
// best-effort to an optional persist.Persister.
package cache

import (
	"encoding/json"
	"sync"

	"github.com/licenseseat/sdk-go/pkg/licenseseat/cache/persist"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/model"
)

// Logger receives diagnostics, e.g. a swallowed persistence failure.
type Logger func(format string, args ...any)

// Cache holds the Coordinator's durable state. Zero value is not
// usable; construct with New.
type Cache struct {
	mu sync.RWMutex

	persister persist.Persister
	log       Logger

	license           *model.License
	offlineToken      *model.OfflineToken
	publicKey         *model.PublicKey
	lastSeenTimestamp int64
	lastValidation    *model.ValidationResult
}

// New creates a Cache. If persister is non-nil, its prior snapshot (if
// any) is loaded immediately. log may be nil.
func New(persister persist.Persister, log Logger) *Cache {
	c := &Cache{persister: persister, log: log}
	c.load()
	return c
}

func (c *Cache) load() {
	if c.persister == nil {
		return
	}
	data, ok, err := c.persister.Load()
	if err != nil {
		c.logf("cache: load failed: %v", err)
		return
	}
	if !ok {
		return
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logf("cache: corrupt snapshot, ignoring: %v", err)
		return
	}

	if len(rec.License) > 0 {
		var lic model.License
		if err := json.Unmarshal(rec.License, &lic); err == nil {
			c.license = &lic
		}
	}
	if len(rec.OfflineToken) > 0 {
		var tok model.OfflineToken
		if err := json.Unmarshal(rec.OfflineToken, &tok); err == nil {
			c.offlineToken = &tok
		}
	}
	if len(rec.PublicKey) > 0 && rec.PublicKeyID != "" {
		var pk model.PublicKey
		if err := json.Unmarshal(rec.PublicKey, &pk); err == nil {
			c.publicKey = &pk
		}
	}
	c.lastSeenTimestamp = rec.LastSeenTimestamp
}

// snapshotLocked must be called with c.mu held (read or write lock).
func (c *Cache) snapshotLocked() {
	if c.persister == nil {
		return
	}

	var rec record
	if c.license != nil {
		if b, err := json.Marshal(c.license); err == nil {
			rec.License = b
		}
	}
	if c.offlineToken != nil {
		if b, err := json.Marshal(c.offlineToken); err == nil {
			rec.OfflineToken = b
		}
	}
	if c.publicKey != nil {
		if b, err := json.Marshal(c.publicKey); err == nil {
			rec.PublicKey = b
			rec.PublicKeyID = c.publicKey.KeyID
		}
	}
	rec.LastSeenTimestamp = c.lastSeenTimestamp

	data, err := json.Marshal(rec)
	if err != nil {
		c.logf("cache: marshal snapshot failed: %v", err)
		return
	}

	// Persistence failures are swallowed: the in-memory cache stays
	// authoritative regardless of whether the snapshot landed on disk.
	if err := c.persister.Save(data); err != nil {
		c.logf("cache: persist failed: %v", err)
	}
}

func (c *Cache) logf(format string, args ...any) {
	if c.log != nil {
		c.log(format, args...)
	}
}

// GetLicense returns a defensive copy of the cached license, or nil.
func (c *Cache) GetLicense() *model.License {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.license == nil {
		return nil
	}
	cp := *c.license
	return &cp
}

// SetLicense stores lic and snapshots the cache.
func (c *Cache) SetLicense(lic model.License) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.license = &lic
	c.snapshotLocked()
}

// ClearLicense removes the cached license only. Per the cache's
// invariants, this does not clear the offline token; deactivation must
// explicitly clear both by also calling ClearOfflineToken.
func (c *Cache) ClearLicense() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.license = nil
	c.lastValidation = nil
	c.snapshotLocked()
}

// GetOfflineToken returns a defensive copy of the cached offline token,
// or nil.
func (c *Cache) GetOfflineToken() *model.OfflineToken {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.offlineToken == nil {
		return nil
	}
	cp := *c.offlineToken
	return &cp
}

// SetOfflineToken stores tok and snapshots the cache.
func (c *Cache) SetOfflineToken(tok model.OfflineToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offlineToken = &tok
	c.snapshotLocked()
}

// ClearOfflineToken removes the cached offline token and, per the
// cache's invariants, the cached public key along with it.
func (c *Cache) ClearOfflineToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offlineToken = nil
	c.publicKey = nil
	c.snapshotLocked()
}

// GetPublicKey returns the cached key if its kid matches, else nil.
func (c *Cache) GetPublicKey(kid string) *model.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.publicKey == nil || c.publicKey.KeyID != kid {
		return nil
	}
	cp := *c.publicKey
	return &cp
}

// SetPublicKey replaces the single key slot, evicting any prior kid.
func (c *Cache) SetPublicKey(key model.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publicKey = &key
	c.snapshotLocked()
}

// GetLastSeenTimestamp returns the last persisted last-seen value, Unix
// milliseconds.
func (c *Cache) GetLastSeenTimestamp() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSeenTimestamp
}

// SetLastSeenTimestamp stores millis and snapshots the cache.
func (c *Cache) SetLastSeenTimestamp(millis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeenTimestamp = millis
	c.snapshotLocked()
}

// GetLastValidation returns the most recent ValidationResult, or nil.
// Only the latest result is kept; it is never back-linked from License
// to avoid a License -> ValidationResult -> License cycle.
func (c *Cache) GetLastValidation() *model.ValidationResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastValidation == nil {
		return nil
	}
	cp := *c.lastValidation
	return &cp
}

// SetLastValidation stores result. Not persisted to the blob; it is
// session-scoped, rebuilt by the next validate call after a restart.
func (c *Cache) SetLastValidation(result model.ValidationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastValidation = &result
}

// ClearAll wipes every field and snapshots the now-empty cache, used by
// Reset.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.license = nil
	c.offlineToken = nil
	c.publicKey = nil
	c.lastSeenTimestamp = 0
	c.lastValidation = nil
	c.snapshotLocked()
}
