package fingerprint

import (
	"context"
	"os"
	"time"
)

// Key identifies a fingerprint computation. A changed file size or modification
// time invalidates the cached value.
type Key struct {
	Path        string
	Size        int64
	ModTime     time.Time
	SampleCount int
	Method      string
}

func KeyFor(path string, sampleCount int, method Method) (Key, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return Key{}, err
	}
	return Key{
		Path:        path,
		Size:        stat.Size(),
		ModTime:     stat.ModTime().UTC(),
		SampleCount: sampleCount,
		Method:      method.String(),
	}, nil
}

type Cache interface {
	Get(ctx context.Context, key Key) (string, bool, error)
	Put(ctx context.Context, key Key, fingerprint string) error
}
