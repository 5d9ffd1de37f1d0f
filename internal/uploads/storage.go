package uploads

import (
	"context"
	"io"
	"time"

	"github.com/onboardhr/onboarding/internal/uploads/drivers"
)

// ErrNotFound is returned by drivers when a key does not exist.
var ErrNotFound = drivers.ErrNotFound

// StorageDriver defines how we interact with the binary storage
type StorageDriver interface {
	// Save writes the content under key
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get returns a ReadCloser to stream the file back and its content type
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the file
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a public-facing URL
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
