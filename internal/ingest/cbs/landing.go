package cbs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"cbsetl/internal/datasource"
	"cbsetl/internal/datasource/file"
	"cbsetl/pkg/records"
)

// SaveRaw writes the crime rows to the landing zone as a JSON array and
// returns the written path. The directory is created when missing.
func SaveRaw(dir string, rows []records.Record) (string, error) {
	return saveJSON(dir, file.CrimeSnapshotName, rows, len(rows))
}

// SaveRegionMeta writes the RegioS metadata next to the raw snapshot.
func SaveRegionMeta(dir string, meta []RegionMeta) (string, error) {
	return saveJSON(dir, file.RegionMetaName, meta, len(meta))
}

// LoadRegionMeta reads region metadata previously written by SaveRegionMeta.
func LoadRegionMeta(ctx context.Context, src datasource.Source) ([]RegionMeta, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var meta []RegionMeta
	if err := json.NewDecoder(rc).Decode(&meta); err != nil {
		return nil, fmt.Errorf("cbs: decode region metadata: %w", err)
	}
	return meta, nil
}

func saveJSON(dir, name string, v any, n int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cbs: landing zone: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("cbs: create %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(v); err != nil {
		return "", fmt.Errorf("cbs: encode %s: %w", path, err)
	}
	log.Printf("cbs: saved %s (%d entries)", path, n)
	return path, nil
}
