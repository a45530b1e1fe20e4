package model

import (
	"encoding/json"
	"testing"
)

func TestCounterStats_UnmarshalBareInt(t *testing.T) {
	t.Parallel()

	var c CounterStats
	if err := json.Unmarshal([]byte(`42`), &c); err != nil {
		t.Fatalf("unmarshal bare int: %v", err)
	}
	if c.Hits != 42 {
		t.Errorf("Hits = %d, want 42", c.Hits)
	}
	if c.HitsPerCountry != nil {
		t.Errorf("HitsPerCountry = %v, want nil", c.HitsPerCountry)
	}
}

func TestCounterStats_UnmarshalObject(t *testing.T) {
	t.Parallel()

	var c CounterStats
	raw := `{"hits": 10, "hitsPerCountry": {"US": 7, "DE": 3}}`
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if c.Hits != 10 {
		t.Errorf("Hits = %d, want 10", c.Hits)
	}
	if c.HitsPerCountry["US"] != 7 || c.HitsPerCountry["DE"] != 3 {
		t.Errorf("HitsPerCountry = %v, want US:7 DE:3", c.HitsPerCountry)
	}
}

func TestCounterStats_UnmarshalObjectWithoutCountries(t *testing.T) {
	t.Parallel()

	var c CounterStats
	if err := json.Unmarshal([]byte(`{"hits": 5}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Hits != 5 {
		t.Errorf("Hits = %d, want 5", c.Hits)
	}
	if len(c.HitsPerCountry) != 0 {
		t.Errorf("HitsPerCountry = %v, want empty", c.HitsPerCountry)
	}
}

func TestCounterStats_UnmarshalInvalid(t *testing.T) {
	t.Parallel()

	var c CounterStats
	if err := json.Unmarshal([]byte(`"oops"`), &c); err == nil {
		t.Error("expected error for non-int, non-object value")
	}
}

func TestDocument_MixedPathShapes(t *testing.T) {
	t.Parallel()

	raw := `{
		"hits": 100,
		"errors": {"404": {"hits": 9, "paths": {"/missing": 9}}},
		"hitsPerCountry": {"US": 60, "-": 40},
		"paths": {
			"/repo/a.apk": 12,
			"/api/v1/packages/app": {"hits": 3, "hitsPerCountry": {"FR": 3}}
		},
		"queries": {"maps": 8}
	}`

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}

	if doc.Hits != 100 {
		t.Errorf("Hits = %d, want 100", doc.Hits)
	}
	if doc.Paths["/repo/a.apk"].Hits != 12 {
		t.Errorf("bare-int path hits = %d, want 12", doc.Paths["/repo/a.apk"].Hits)
	}
	if doc.Paths["/api/v1/packages/app"].HitsPerCountry["FR"] != 3 {
		t.Errorf("object path countries = %v, want FR:3",
			doc.Paths["/api/v1/packages/app"].HitsPerCountry)
	}
	if doc.Queries["maps"].Hits != 8 {
		t.Errorf("query hits = %d, want 8", doc.Queries["maps"].Hits)
	}
	if got := doc.TotalErrorHits(); got != 9 {
		t.Errorf("TotalErrorHits() = %d, want 9", got)
	}
}

func TestDocument_AbsentKeysMeanZero(t *testing.T) {
	t.Parallel()

	var doc Document
	if err := json.Unmarshal([]byte(`{}`), &doc); err != nil {
		t.Fatalf("unmarshal empty document: %v", err)
	}
	if doc.Hits != 0 || doc.TotalErrorHits() != 0 {
		t.Errorf("empty document should be all-zero, got hits=%d errors=%d",
			doc.Hits, doc.TotalErrorHits())
	}
}
