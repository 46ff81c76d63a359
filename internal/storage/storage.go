package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

type Storage interface {
	// Put stores data under key and returns the location it can be read back from
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get reads back data from a location returned by Put
	Get(ctx context.Context, location string) ([]byte, error)
}

// DiffKey names a comparison output after the pair of inputs it was computed
// from and the time it was produced.
func DiffKey(current string, reference string, extension string, now time.Time) string {
	h := sha256.Sum256([]byte(current + reference))
	return fmt.Sprintf("ImageCompare/diff/%x/%s.%s", h[:8], now.Format("20060102150405"), extension)
}
