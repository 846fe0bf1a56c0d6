// Package cbs ingests registered-crime statistics from the CBS Open Data
// OData API (dataset 83648NED by default). It pulls the typed dataset and the
// RegioS metadata, reduces the rows to municipality level, and reads/writes
// the raw JSON landing zone so the transform stage can re-run offline.
package cbs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"cbsetl/internal/datasource"
	"cbsetl/internal/datasource/httpds"
	"cbsetl/pkg/records"
)

const (
	// DefaultBaseURL is the CBS OData v3 API root.
	DefaultBaseURL = "https://opendata.cbs.nl/ODataApi/odata"

	// DefaultDatasetID is the registered-crimes dataset.
	DefaultDatasetID = "83648NED"

	// DefaultPageSize matches the CBS server-side page cap.
	DefaultPageSize = 10000

	// RegionCodeColumn is the column the municipality filter injects into
	// each kept row. The column resolver knows it as the region-code role.
	RegionCodeColumn = "region_code"

	// municipalityPrefix marks municipality-level region codes (GM0363 etc.).
	municipalityPrefix = "GM"
)

// Config configures the CBS client. Zero values get the defaults above.
type Config struct {
	BaseURL   string
	DatasetID string
	PageSize  int
	HTTP      httpds.Config
}

// Client fetches CBS open data with retry/backoff semantics.
type Client struct {
	http     *httpds.Client
	baseURL  string
	dataset  string
	pageSize int
}

// NewClient constructs a Client from Config.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DatasetID == "" {
		cfg.DatasetID = DefaultDatasetID
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Client{
		http:     httpds.NewClient(cfg.HTTP),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		dataset:  cfg.DatasetID,
		pageSize: cfg.PageSize,
	}
}

// odataPage is one page of an OData v3 JSON response.
type odataPage struct {
	Value []records.Record `json:"value"`
}

// FetchTypedData pulls the full typed dataset, following $skip pagination
// until a short page signals the end.
func (c *Client) FetchTypedData(ctx context.Context) ([]records.Record, error) {
	var rows []records.Record
	for skip := 0; ; skip += c.pageSize {
		url := fmt.Sprintf("%s/%s/TypedDataSet?$format=json&$top=%d&$skip=%d",
			c.baseURL, c.dataset, c.pageSize, skip)

		var page odataPage
		if err := c.http.GetJSON(ctx, url, &page); err != nil {
			return nil, fmt.Errorf("cbs: typed data page skip=%d: %w", skip, err)
		}
		rows = append(rows, page.Value...)
		log.Printf("cbs: fetched page skip=%d rows=%d total=%d", skip, len(page.Value), len(rows))

		if len(page.Value) < c.pageSize {
			return rows, nil
		}
	}
}

// RegionMeta is one RegioS metadata entry: the stable code and display title.
type RegionMeta struct {
	Key   string `json:"Key"`
	Title string `json:"Title"`
}

// FetchRegionMeta pulls the RegioS dimension metadata used to map region
// display names back to CBS codes.
func (c *Client) FetchRegionMeta(ctx context.Context) ([]RegionMeta, error) {
	url := fmt.Sprintf("%s/%s/RegioS?$format=json", c.baseURL, c.dataset)

	var page struct {
		Value []RegionMeta `json:"value"`
	}
	if err := c.http.GetJSON(ctx, url, &page); err != nil {
		return nil, fmt.Errorf("cbs: region metadata: %w", err)
	}
	for i := range page.Value {
		page.Value[i].Key = strings.TrimSpace(page.Value[i].Key)
		page.Value[i].Title = strings.TrimSpace(page.Value[i].Title)
	}
	log.Printf("cbs: fetched %d region metadata entries", len(page.Value))
	return page.Value, nil
}

// IsMunicipality reports whether a CBS region code is municipality-level.
func IsMunicipality(code string) bool {
	return strings.HasPrefix(code, municipalityPrefix)
}

// MunicipalityNameIndex builds a folded-name -> code index over the
// municipality entries of the metadata. Folding removes diacritics so that
// title variants between the metadata and data endpoints still match.
func MunicipalityNameIndex(meta []RegionMeta) map[string]string {
	idx := make(map[string]string, len(meta))
	for _, m := range meta {
		if IsMunicipality(m.Key) {
			idx[foldName(m.Title)] = m.Key
		}
	}
	return idx
}

// FilterMunicipalities keeps only rows whose region name resolves to a
// municipality code, preserving original row order, and injects the resolved
// code into each kept row under RegionCodeColumn. nameCol is the resolved
// region-name column. The dropped count covers province/national aggregates
// and rows with unknown names.
func FilterMunicipalities(rows []records.Record, meta []RegionMeta, nameCol string) ([]records.Record, int) {
	idx := MunicipalityNameIndex(meta)
	kept := make([]records.Record, 0, len(rows))
	dropped := 0

	for _, r := range rows {
		name, ok := r.String(nameCol)
		if !ok {
			dropped++
			continue
		}
		code, ok := idx[foldName(name)]
		if !ok {
			dropped++
			continue
		}
		r[RegionCodeColumn] = code
		kept = append(kept, r)
	}
	return kept, dropped
}

// FilterByRegionCode keeps rows whose region code already carries the
// municipality prefix, preserving original order. Used when the snapshot was
// loaded from the landing zone with codes already injected.
func FilterByRegionCode(rows []records.Record, codeCol string) ([]records.Record, int) {
	kept := make([]records.Record, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		code, ok := r.String(codeCol)
		if !ok || !IsMunicipality(code) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// LoadRaw decodes a landing-zone crime snapshot (a JSON array of rows).
func LoadRaw(ctx context.Context, src datasource.Source) ([]records.Record, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var rows []records.Record
	if err := json.NewDecoder(rc).Decode(&rows); err != nil {
		return nil, fmt.Errorf("cbs: decode raw snapshot: %w", err)
	}
	return rows, nil
}

// foldName normalizes a region display name for matching: trims space and
// strips combining marks (diacritics) via NFD -> remove Mn -> NFC.
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return folded
}
