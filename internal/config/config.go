// Package config defines the canonical, JSON-serializable configuration model
// for the pipeline. It is intentionally small, explicit, and dependency-free
// so that job files can be loaded from disk and passed through the program
// without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in job files
//     under configs/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by
//     the standard library.
//
// Example (trimmed):
//
//	{
//	  "job":     "crime",
//	  "source":  { "kind": "cbs" },
//	  "cbs":     { "dataset_id": "83648NED", "page_size": 10000 },
//	  "storage": { "kind": "postgres", "db": { "dsn": "postgresql://..." } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Pipeline describes one full run in JSON. It is the top-level object decoded
// from a job file (e.g., configs/cbs_crime.json).
type Pipeline struct {
	// Job names the run; it labels metrics and log lines.
	Job string `json:"job"`

	// Source describes where raw data comes from (live APIs or the landing
	// zone from an earlier run).
	Source Source `json:"source"`

	// CBS configures the OData crime statistics client.
	CBS CBSConfig `json:"cbs"`

	// Geo configures the municipal boundaries client.
	Geo GeoConfig `json:"geo"`

	// HTTP tunes the shared HTTP client used by both ingest clients.
	HTTP HTTPConfig `json:"http"`

	// Storage describes the warehouse the star schema is loaded into.
	Storage Storage `json:"storage"`

	// Serve configures the optional read-path HTTP server.
	Serve ServeConfig `json:"serve"`

	// DataDir is the landing zone directory for raw snapshots.
	DataDir string `json:"data_dir"`
}

// Source identifies where the raw snapshot comes from.
type Source struct {
	// Kind selects the source implementation: "cbs" fetches live from the
	// OData API, "file" replays a snapshot from the landing zone.
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the raw crime snapshot. When
	// empty, the snapshot is read from the landing zone under DataDir.
	Path string `json:"path"`
}

// CBSConfig configures the CBS OData client.
type CBSConfig struct {
	// BaseURL overrides the OData API root. Empty means the public API.
	BaseURL string `json:"base_url"`

	// DatasetID selects the statistics table, e.g. "83648NED".
	DatasetID string `json:"dataset_id"`

	// PageSize is the $top value used when paging TypedDataSet.
	PageSize int `json:"page_size"`
}

// GeoConfig configures the municipal boundaries client.
type GeoConfig struct {
	// BaseURL overrides the OGC API items endpoint. Empty means the public
	// PDOK service.
	BaseURL string `json:"base_url"`

	// PageSize is the limit per page when fetching features.
	PageSize int `json:"page_size"`
}

// HTTPConfig tunes the retrying HTTP client shared by the ingest clients.
type HTTPConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	MaxRetries     int `json:"max_retries"`
	// InitialBackoffMS is the first retry delay; it doubles per attempt.
	InitialBackoffMS int `json:"initial_backoff_ms"`
	MaxBackoffMS     int `json:"max_backoff_ms"`
}

// Timeout returns the configured timeout as a duration (zero when unset).
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// InitialBackoff returns the configured first retry delay.
func (h HTTPConfig) InitialBackoff() time.Duration {
	return time.Duration(h.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the configured backoff ceiling.
func (h HTTPConfig) MaxBackoff() time.Duration {
	return time.Duration(h.MaxBackoffMS) * time.Millisecond
}

// Storage selects the warehouse used to persist the star schema.
type Storage struct {
	// Kind selects the backend: "postgres" or "sqlite".
	Kind string `json:"kind"`

	// DB carries the shared database settings.
	DB DBConfig `json:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	// DSN is the connection string: postgresql://... for pgx, or a file
	// path / file: URI for SQLite.
	DSN string `json:"dsn"`
}

// ServeConfig configures the read-path HTTP server.
type ServeConfig struct {
	// Addr is the listen address, e.g. ":8080". Empty disables serving.
	Addr string `json:"addr"`
}

// Defaults used when the job file leaves a field zero.
const (
	DefaultJob       = "crime"
	DefaultDataDir   = "data"
	DefaultServeAddr = ":8080"
)

// ApplyDefaults fills zero-valued fields with sensible defaults. It mutates
// the receiver and returns it for chaining.
func (p *Pipeline) ApplyDefaults() *Pipeline {
	if p.Job == "" {
		p.Job = DefaultJob
	}
	if p.Source.Kind == "" {
		p.Source.Kind = "cbs"
	}
	if p.DataDir == "" {
		p.DataDir = DefaultDataDir
	}
	if p.Storage.Kind == "" {
		p.Storage.Kind = "sqlite"
	}
	return p
}

// Load reads and decodes a job file. Unknown fields are rejected so typos in
// job files fail loudly instead of silently falling back to defaults.
func Load(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return p.ApplyDefaults(), nil
}
