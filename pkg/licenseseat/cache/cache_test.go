package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licenseseat/sdk-go/pkg/licenseseat/model"
)

// memPersister is an in-process persist.Persister fake backed by a byte
// slice, the way the teacher's service tests fake a repository instead
// of standing up Postgres.
type memPersister struct {
	data []byte
	ok   bool
}

func (p *memPersister) Load() ([]byte, bool, error) { return p.data, p.ok, nil }
func (p *memPersister) Save(data []byte) error {
	p.data = append([]byte(nil), data...)
	p.ok = true
	return nil
}

func TestCache_LicenseRoundTrip(t *testing.T) {
	c := New(nil, nil)
	assert.Nil(t, c.GetLicense())

	lic := model.License{Key: "ABC-123", ProductSlug: "acme", Status: model.StatusActive}
	c.SetLicense(lic)

	got := c.GetLicense()
	require.NotNil(t, got)
	assert.Equal(t, "ABC-123", got.Key)

	// GetLicense returns a defensive copy.
	got.Key = "mutated"
	assert.Equal(t, "ABC-123", c.GetLicense().Key)

	c.ClearLicense()
	assert.Nil(t, c.GetLicense())
}

func TestCache_ClearOfflineTokenAlsoClearsPublicKey(t *testing.T) {
	c := New(nil, nil)
	c.SetOfflineToken(model.OfflineToken{LicenseKey: "ABC-123", SigningKeyID: "kid-1"})
	c.SetPublicKey(model.PublicKey{KeyID: "kid-1", Algorithm: "ed25519", Bytes: []byte("pub")})

	require.NotNil(t, c.GetOfflineToken())
	require.NotNil(t, c.GetPublicKey("kid-1"))

	c.ClearOfflineToken()

	assert.Nil(t, c.GetOfflineToken(), "clearing the offline token must clear it")
	assert.Nil(t, c.GetPublicKey("kid-1"), "clearing the offline token must also clear the public key")
}

func TestCache_ClearLicenseDoesNotClearOfflineToken(t *testing.T) {
	c := New(nil, nil)
	c.SetLicense(model.License{Key: "ABC-123"})
	c.SetOfflineToken(model.OfflineToken{LicenseKey: "ABC-123"})

	c.ClearLicense()

	assert.Nil(t, c.GetLicense())
	assert.NotNil(t, c.GetOfflineToken(), "clearing the license must not clear the offline token")
}

func TestCache_GetPublicKeyRequiresMatchingKid(t *testing.T) {
	c := New(nil, nil)
	c.SetPublicKey(model.PublicKey{KeyID: "kid-1", Bytes: []byte("a")})
	assert.NotNil(t, c.GetPublicKey("kid-1"))
	assert.Nil(t, c.GetPublicKey("kid-2"))
}

func TestCache_LastValidationIsNotPersisted(t *testing.T) {
	persister := &memPersister{}
	c := New(persister, nil)
	c.SetLastValidation(model.ValidationResult{Valid: true})
	assert.NotNil(t, c.GetLastValidation())

	reloaded := New(persister, nil)
	assert.Nil(t, reloaded.GetLastValidation(), "last validation result is session-scoped, not part of the persisted blob")
}

func TestCache_PersistsAndReloads(t *testing.T) {
	persister := &memPersister{}
	c := New(persister, nil)
	c.SetLicense(model.License{Key: "ABC-123", ProductSlug: "acme"})
	c.SetOfflineToken(model.OfflineToken{LicenseKey: "ABC-123", SigningKeyID: "kid-1"})
	c.SetPublicKey(model.PublicKey{KeyID: "kid-1", Bytes: []byte("pub")})
	c.SetLastSeenTimestamp(12345)

	require.True(t, persister.ok)

	reloaded := New(persister, nil)
	require.NotNil(t, reloaded.GetLicense())
	assert.Equal(t, "ABC-123", reloaded.GetLicense().Key)
	require.NotNil(t, reloaded.GetOfflineToken())
	assert.Equal(t, "kid-1", reloaded.GetOfflineToken().SigningKeyID)
	require.NotNil(t, reloaded.GetPublicKey("kid-1"))
	assert.Equal(t, int64(12345), reloaded.GetLastSeenTimestamp())
}

func TestCache_LoadIgnoresCorruptSnapshot(t *testing.T) {
	persister := &memPersister{data: []byte("not json"), ok: true}
	c := New(persister, nil)
	assert.Nil(t, c.GetLicense())
}

func TestCache_ClearAll(t *testing.T) {
	persister := &memPersister{}
	c := New(persister, nil)
	c.SetLicense(model.License{Key: "ABC-123"})
	c.SetOfflineToken(model.OfflineToken{LicenseKey: "ABC-123"})
	c.SetPublicKey(model.PublicKey{KeyID: "kid-1"})
	c.SetLastSeenTimestamp(999)

	c.ClearAll()

	assert.Nil(t, c.GetLicense())
	assert.Nil(t, c.GetOfflineToken())
	assert.Nil(t, c.GetPublicKey("kid-1"))
	assert.Equal(t, int64(0), c.GetLastSeenTimestamp())

	reloaded := New(persister, nil)
	assert.Nil(t, reloaded.GetLicense())
}
