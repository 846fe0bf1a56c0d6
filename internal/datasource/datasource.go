// Package datasource defines the minimal contract between the pipeline and
// its byte sources (HTTP APIs, landing-zone files).
package datasource

import (
	"context"
	"io"
)

// Source supplies one readable snapshot of raw input bytes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
