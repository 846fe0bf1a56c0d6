// Package geo ingests Dutch municipality boundary geometry from the PDOK
// "bestuurlijke gebieden" OGC API. The boundaries are not part of the star
// schema; they land in the raw zone as GeoJSON and feed the map read path.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cbsetl/internal/datasource"
	"cbsetl/internal/datasource/file"
	"cbsetl/internal/datasource/httpds"
)

const (
	// DefaultBaseURL is the municipality boundary collection items endpoint.
	DefaultBaseURL = "https://api.pdok.nl/kadaster/bestuurlijkegebieden/ogc/v1/collections/gemeentegebied/items"

	// DefaultPageSize is the PDOK per-page feature limit.
	DefaultPageSize = 100
)

// Config configures the PDOK client. Zero values get the defaults above.
type Config struct {
	BaseURL  string
	PageSize int
	HTTP     httpds.Config
}

// Client fetches boundary features with retry/backoff semantics.
type Client struct {
	http     *httpds.Client
	baseURL  string
	pageSize int
}

// NewClient constructs a Client from Config.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Client{
		http:     httpds.NewClient(cfg.HTTP),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: cfg.PageSize,
	}
}

// FeatureCollection is a GeoJSON feature collection. Features stay raw: the
// pipeline never interprets geometry, it only stores and serves it.
type FeatureCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// FetchMunicipalities pulls all boundary features, following offset
// pagination until a short page signals the end.
func (c *Client) FetchMunicipalities(ctx context.Context) (*FeatureCollection, error) {
	fc := &FeatureCollection{Type: "FeatureCollection"}

	for offset := 0; ; offset += c.pageSize {
		url := fmt.Sprintf("%s?f=json&limit=%d&offset=%d", c.baseURL, c.pageSize, offset)

		var page FeatureCollection
		if err := c.http.GetJSON(ctx, url, &page); err != nil {
			return nil, fmt.Errorf("geo: boundary page offset=%d: %w", offset, err)
		}
		fc.Features = append(fc.Features, page.Features...)
		log.Printf("geo: fetched page offset=%d features=%d total=%d",
			offset, len(page.Features), len(fc.Features))

		if len(page.Features) < c.pageSize {
			return fc, nil
		}
	}
}

// Save writes the feature collection to the landing zone and returns the
// written path.
func Save(dir string, fc *FeatureCollection) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("geo: landing zone: %w", err)
	}
	path := filepath.Join(dir, file.GeoSnapshotName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("geo: create %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(fc); err != nil {
		return "", fmt.Errorf("geo: encode %s: %w", path, err)
	}
	log.Printf("geo: saved %s (%d features)", path, len(fc.Features))
	return path, nil
}

// Load reads a feature collection previously written by Save.
func Load(ctx context.Context, src datasource.Source) (*FeatureCollection, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var fc FeatureCollection
	if err := json.NewDecoder(rc).Decode(&fc); err != nil {
		return nil, fmt.Errorf("geo: decode feature collection: %w", err)
	}
	return &fc, nil
}
