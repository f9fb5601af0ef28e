// Package s3persist stores the cache blob as a single S3 object, for
// hosts with no writable local disk (e.g. containers on ephemeral
// storage with an attached instance role).
package s3persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Persister stores the cache blob at Bucket/Key.
type Persister struct {
	Client *s3.Client
	Bucket string
	Key    string
}

// New returns a Persister using client, keyed by storagePrefix+"cache.bin".
func New(client *s3.Client, bucket, storagePrefix string) *Persister {
	return &Persister{Client: client, Bucket: bucket, Key: storagePrefix + "cache.bin"}
}

// Load fetches the object. A missing object reports ok=false.
func (p *Persister) Load() ([]byte, bool, error) {
	ctx := context.Background()
	out, err := p.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("s3persist: get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("s3persist: read body: %w", err)
	}
	return data, true, nil
}

// Save overwrites the object. S3's PutObject is atomic from a reader's
// point of view: a concurrent Load either sees the old or new object,
// never a partial one.
func (p *Persister) Save(data []byte) error {
	ctx := context.Background()
	_, err := p.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3persist: put object: %w", err)
	}
	return nil
}
