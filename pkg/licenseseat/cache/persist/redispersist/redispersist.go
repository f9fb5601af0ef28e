// Package redispersist stores the cache blob under a single Redis key,
// for multi-instance deployments where local disk is not shared or not
// durable across restarts.
package redispersist

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Persister stores the cache blob at Key via Client.
type Persister struct {
	Client *redis.Client
	Key    string
}

// New returns a Persister using client, keyed by storagePrefix+"cache".
func New(client *redis.Client, storagePrefix string) *Persister {
	return &Persister{Client: client, Key: storagePrefix + "cache"}
}

// Load fetches the blob. A missing key reports ok=false, not an error.
func (p *Persister) Load() ([]byte, bool, error) {
	ctx := context.Background()
	data, err := p.Client.Get(ctx, p.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redispersist: get: %w", err)
	}
	return data, true, nil
}

// Save overwrites the blob with no expiry; the cache itself owns the
// record's lifetime, not Redis.
func (p *Persister) Save(data []byte) error {
	ctx := context.Background()
	if err := p.Client.Set(ctx, p.Key, data, 0).Err(); err != nil {
		return fmt.Errorf("redispersist: set: %w", err)
	}
	return nil
}
