package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []counterCall
	durations  []durationCall
	flushCount int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type durationCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveDuration(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations = append(f.durations, durationCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStage_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordStage("crime", "transform", nil, 2*time.Second)
	RecordStage("crime", "load", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.counters))
	}
	if len(fb.durations) != 2 {
		t.Fatalf("expected 2 duration calls, got %d", len(fb.durations))
	}

	// First call: success.
	cc0 := fb.counters[0]
	if cc0.name != "pipeline_stage_total" || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=pipeline_stage_total, delta=1", cc0)
	}
	if got := cc0.labels["stage"]; got != "transform" {
		t.Fatalf("counter[0].labels[stage]=%q; want %q", got, "transform")
	}
	if got := cc0.labels["status"]; got != "success" {
		t.Fatalf("counter[0].labels[status]=%q; want %q", got, "success")
	}

	d0 := fb.durations[0]
	if d0.name != "pipeline_stage_duration_seconds" {
		t.Fatalf("duration[0].name=%q; want pipeline_stage_duration_seconds", d0.name)
	}
	if d0.value < 2.0-0.001 || d0.value > 2.0+0.001 {
		t.Fatalf("duration[0].value=%v; want ~2.0", d0.value)
	}

	// Second call: failure.
	cc1 := fb.counters[1]
	if cc1.labels["stage"] != "load" || cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1] labels = %v; want stage=load, status=failure", cc1.labels)
	}
	d1 := fb.durations[1]
	if d1.value < 1.5-0.001 || d1.value > 1.5+0.001 {
		t.Fatalf("duration[1].value=%v; want ~1.5", d1.value)
	}
}

func TestRecordRowsAndChecks(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRows("crime", "ingested", 3)
	RecordRows("crime", "ingested", 0) // should be ignored
	RecordRows("crime", "facts_loaded", 5)
	RecordChecks("crime", 16)

	if len(fb.counters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.counters))
	}

	c0 := fb.counters[0]
	if c0.name != "pipeline_rows_total" || c0.delta != 3 {
		t.Fatalf("counter[0] = %#v; want name=pipeline_rows_total, delta=3", c0)
	}
	if c0.labels["job"] != "crime" || c0.labels["kind"] != "ingested" {
		t.Fatalf("counter[0] labels = %v; want job=crime, kind=ingested", c0.labels)
	}

	c1 := fb.counters[1]
	if c1.delta != 5 || c1.labels["kind"] != "facts_loaded" {
		t.Fatalf("counter[1] = %#v; want delta=5, kind=facts_loaded", c1)
	}

	c2 := fb.counters[2]
	if c2.name != "pipeline_quality_checks_total" || c2.delta != 16 {
		t.Fatalf("counter[2] = %#v; want name=pipeline_quality_checks_total, delta=16", c2)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
