// Package file implements a filesystem datasource for the raw landing zone.
// It lets the pipeline re-run from a previously saved snapshot instead of
// hitting the upstream APIs.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Default landing-zone file names, mirroring what the ingest stage saves.
const (
	CrimeSnapshotName = "crime_raw.json"
	RegionMetaName    = "region_meta.json"
	GeoSnapshotName   = "municipalities.geojson"
)

// Local is a datasource.Source that reads one file from local disk.
type Local struct{ path string }

// NewLocal returns a Local source bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// InLandingZone returns a Local source for a named artifact inside the raw
// data directory.
func InLandingZone(dir, name string) *Local {
	return &Local{path: filepath.Join(dir, name)}
}

// Path returns the underlying filesystem path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading. A canceled context returns the
// context error without touching the filesystem; filesystem errors are
// wrapped with the path while keeping errors.Is(err, os.ErrNotExist) intact.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
