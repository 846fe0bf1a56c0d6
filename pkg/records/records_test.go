package records

import (
	"reflect"
	"testing"
)

func TestNewSnapshotColumnUnion(t *testing.T) {
	snap := NewSnapshot([]Record{
		{"b": 1, "a": "x"},
		{"c": nil},
		{"a": "y", "c": 2.0},
	})

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(snap.Columns, want) {
		t.Fatalf("Columns = %v, want sorted union %v", snap.Columns, want)
	}
	if snap.Len() != 3 {
		t.Fatalf("Len = %d, want 3", snap.Len())
	}
	if !snap.HasColumn("b") || snap.HasColumn("d") {
		t.Error("HasColumn mismatch")
	}
}

func TestRecordString(t *testing.T) {
	r := Record{"name": "Amsterdam", "count": 3.0, "missing": nil}

	if s, ok := r.String("name"); !ok || s != "Amsterdam" {
		t.Errorf("String(name) = %q, %v", s, ok)
	}
	if _, ok := r.String("count"); ok {
		t.Error("String(count) ok for non-string value")
	}
	if _, ok := r.String("missing"); ok {
		t.Error("String(missing) ok for nil value")
	}
	if _, ok := r.String("absent"); ok {
		t.Error("String(absent) ok for absent key")
	}
}

func TestRecordClone(t *testing.T) {
	r := Record{"a": 1}
	c := r.Clone()
	c["a"] = 2
	if r["a"] != 1 {
		t.Fatal("Clone shares storage with the original")
	}
}

func TestAddColumn(t *testing.T) {
	snap := NewSnapshot([]Record{{"a": 1}})
	snap.AddColumn("region_code")
	snap.AddColumn("a") // already present, no duplicate

	want := []string{"a", "region_code"}
	if !reflect.DeepEqual(snap.Columns, want) {
		t.Fatalf("Columns = %v, want %v", snap.Columns, want)
	}
}
