package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	return Pipeline{
		Job:    "crime",
		Source: Source{Kind: "cbs"},
		CBS:    CBSConfig{DatasetID: "83648NED", PageSize: 10000},
		Geo:    GeoConfig{PageSize: 100},
		HTTP:   HTTPConfig{TimeoutSeconds: 30, MaxRetries: 3, InitialBackoffMS: 500, MaxBackoffMS: 8000},
		Storage: Storage{
			Kind: "postgres",
			DB:   DBConfig{DSN: "postgres://user@localhost/db"},
		},
		DataDir: "data",
	}
}

func TestValidatePipeline_ValidMinimal(t *testing.T) {
	issues := ValidatePipeline(validPipeline())
	if len(issues) != 0 {
		t.Fatalf("expected no issues for a valid pipeline; got: %+v", issues)
	}
}

func TestValidatePipeline_MissingJob(t *testing.T) {
	p := validPipeline()
	p.Job = ""

	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "job", "job must not be empty") {
		t.Fatalf("expected SeverityError for job; got issues: %+v", issues)
	}
	if !HasErrors(issues) {
		t.Fatal("HasErrors = false, want true")
	}
}

func TestValidatePipeline_Source(t *testing.T) {
	p := validPipeline()
	p.Source.Kind = ""
	if issues := ValidatePipeline(p); !hasIssue(t, issues, SeverityError, "source.kind", "must not be empty") {
		t.Fatalf("expected error for empty source.kind; got: %+v", issues)
	}

	p.Source.Kind = "s3"
	if issues := ValidatePipeline(p); !hasIssue(t, issues, SeverityWarning, "source.kind", `unknown source kind "s3"`) {
		t.Fatalf("expected warning for unknown source kind; got: %+v", ValidatePipeline(p))
	}
}

func TestValidatePipeline_CBS(t *testing.T) {
	p := validPipeline()
	p.CBS.PageSize = -1
	if issues := ValidatePipeline(p); !hasIssue(t, issues, SeverityError, "cbs.page_size", "negative") {
		t.Fatalf("expected error for negative page_size; got: %+v", issues)
	}

	p = validPipeline()
	p.CBS.DatasetID = "bad id"
	if issues := ValidatePipeline(p); !hasIssue(t, issues, SeverityError, "cbs.dataset_id", "cannot appear") {
		t.Fatalf("expected error for invalid dataset id; got: %+v", issues)
	}

	p = validPipeline()
	p.CBS.BaseURL = "ftp://example.com"
	if issues := ValidatePipeline(p); !hasIssue(t, issues, SeverityError, "cbs.base_url", "http(s)") {
		t.Fatalf("expected error for non-http base_url; got: %+v", issues)
	}
}

func TestValidatePipeline_HTTP(t *testing.T) {
	p := validPipeline()
	p.HTTP.MaxRetries = -1
	if issues := ValidatePipeline(p); !hasIssue(t, issues, SeverityError, "http.max_retries", "negative") {
		t.Fatalf("expected error for negative retries; got: %+v", issues)
	}

	p = validPipeline()
	p.HTTP.InitialBackoffMS = 10000
	p.HTTP.MaxBackoffMS = 8000
	if issues := ValidatePipeline(p); !hasIssue(t, issues, SeverityWarning, "http.max_backoff_ms", "exceeds ceiling") {
		t.Fatalf("expected warning for inverted backoff bounds; got: %+v", issues)
	}
}

func TestValidatePipeline_Storage(t *testing.T) {
	p := validPipeline()
	p.Storage.DB.DSN = ""
	if issues := ValidatePipeline(p); !hasIssue(t, issues, SeverityError, "storage.db.dsn", "must not be empty") {
		t.Fatalf("expected error for empty dsn; got: %+v", issues)
	}

	p = validPipeline()
	p.Storage.Kind = "oracle"
	if issues := ValidatePipeline(p); !hasIssue(t, issues, SeverityWarning, "storage.kind", `unknown storage kind "oracle"`) {
		t.Fatalf("expected warning for unknown storage kind; got: %+v", issues)
	}

	p = validPipeline()
	p.Storage.Kind = ""
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "storage.kind", "must not be empty") {
		t.Fatalf("expected error for empty storage kind; got: %+v", issues)
	}
	// Empty kind short-circuits the DSN check.
	if hasIssue(t, issues, SeverityError, "storage.db.dsn", "") {
		t.Fatalf("did not expect dsn issue when kind is empty; got: %+v", issues)
	}
}
