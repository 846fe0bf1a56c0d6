// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "cbs.page_size"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the slice is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
//
// Example:
//
//	p, err := config.Load(path)
//	if err != nil { ... }
//	issues := config.ValidatePipeline(*p)
//	for _, iss := range issues {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateCBS(p.CBS)...)
	issues = append(issues, validateGeo(p.Geo)...)
	issues = append(issues, validateHTTP(p.HTTP)...)
	issues = append(issues, validateStorage(p.Storage)...)

	return issues
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}

	// Unknown kinds are warnings for forward compatibility.
	known := map[string]struct{}{
		"cbs":  {},
		"file": {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; ensure a matching implementation exists", s.Kind),
		})
	}

	return issues
}

// validateCBS validates the OData client configuration.
func validateCBS(c CBSConfig) []Issue {
	var issues []Issue

	if c.PageSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "cbs.page_size",
			Message:  "page_size must not be negative",
		})
	}
	if id := strings.TrimSpace(c.DatasetID); id != "" && strings.ContainsAny(id, " /?") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "cbs.dataset_id",
			Message:  fmt.Sprintf("dataset id %q contains characters that cannot appear in an OData table name", id),
		})
	}
	if u := strings.TrimSpace(c.BaseURL); u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "cbs.base_url",
			Message:  "base_url must be an http(s) URL",
		})
	}

	return issues
}

// validateGeo validates the boundaries client configuration.
func validateGeo(g GeoConfig) []Issue {
	var issues []Issue

	if g.PageSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "geo.page_size",
			Message:  "page_size must not be negative",
		})
	}
	if u := strings.TrimSpace(g.BaseURL); u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "geo.base_url",
			Message:  "base_url must be an http(s) URL",
		})
	}

	return issues
}

// validateHTTP validates the shared HTTP client tuning.
func validateHTTP(h HTTPConfig) []Issue {
	var issues []Issue

	if h.TimeoutSeconds < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "http.timeout_seconds",
			Message:  "timeout_seconds must not be negative",
		})
	}
	if h.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "http.max_retries",
			Message:  "max_retries must not be negative",
		})
	}
	if h.InitialBackoffMS < 0 || h.MaxBackoffMS < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "http.initial_backoff_ms",
			Message:  "backoff durations must not be negative",
		})
	}
	if h.MaxBackoffMS > 0 && h.InitialBackoffMS > h.MaxBackoffMS {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "http.max_backoff_ms",
			Message:  fmt.Sprintf("initial backoff %dms exceeds ceiling %dms; retries will all use the ceiling", h.InitialBackoffMS, h.MaxBackoffMS),
		})
	}

	return issues
}

// validateStorage validates storage configuration and DB settings.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}

	return issues
}
