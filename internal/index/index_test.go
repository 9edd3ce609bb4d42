package index

import (
	"errors"
	"testing"

	"github.com/ldi/tally/pkg/models"
)

func meta(id string) Metadata {
	return Metadata{TaskID: id, Snapshot: models.Snapshot{TaskName: id}}
}

func TestDimensionFixedByFirstInsert(t *testing.T) {
	ix := New()

	vec := make([]float32, 384)
	if err := ix.Insert(vec, meta("a")); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if ix.Dimension() != 384 {
		t.Errorf("Expected dimension 384, got %d", ix.Dimension())
	}

	err := ix.Insert(make([]float32, 128), meta("b"))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}

	// The failed insert must not alter the index.
	if ix.Len() != 1 {
		t.Errorf("Expected 1 entry after failed insert, got %d", ix.Len())
	}
	if ix.Dimension() != 384 {
		t.Errorf("Expected dimension unchanged, got %d", ix.Dimension())
	}
}

func TestSearchNearestFirst(t *testing.T) {
	ix := New()

	vectors := map[string][]float32{
		"far":     {10, 0},
		"near":    {1, 0},
		"nearest": {0.5, 0},
	}
	for _, id := range []string{"far", "near", "nearest"} {
		if err := ix.Insert(vectors[id], meta(id)); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}

	results, err := ix.Search([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].TaskID != "nearest" || results[1].TaskID != "near" {
		t.Errorf("Expected [nearest near], got [%s %s]", results[0].TaskID, results[1].TaskID)
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ix := New()

	// Same distance from the query, inserted in a known order.
	ties := []struct {
		id  string
		vec []float32
	}{
		{"first", []float32{1, 0}},
		{"second", []float32{-1, 0}},
		{"third", []float32{0, 1}},
	}
	for _, e := range ties {
		if err := ix.Insert(e.vec, meta(e.id)); err != nil {
			t.Fatalf("Insert %s failed: %v", e.id, err)
		}
	}

	results, err := ix.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if results[i].TaskID != want {
			t.Errorf("Expected position %d to be %s, got %s", i, want, results[i].TaskID)
		}
	}
}

func TestSearchClampsK(t *testing.T) {
	ix := New()
	for _, id := range []string{"a", "b"} {
		if err := ix.Insert([]float32{1, 2}, meta(id)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	results, err := ix.Search([]float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected k clamped to 2, got %d results", len(results))
	}

	none, err := ix.Search([]float32{0, 0}, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no results for k=0, got %d", len(none))
	}
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	ix := New()
	if err := ix.Insert([]float32{1, 2, 3}, meta("a")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	_, err := ix.Search([]float32{1, 2}, 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch for bad query, got %v", err)
	}
}

func TestIdenticalVectorsHaveZeroDistance(t *testing.T) {
	ix := New()

	vec := []float32{0.25, -0.5, 0.75}
	if err := ix.Insert(vec, meta("one")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := ix.Insert(vec, meta("two")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	results, err := ix.Search(vec, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected both duplicates, got %d", len(results))
	}
	if results[0].TaskID != "one" || results[1].TaskID != "two" {
		t.Errorf("Expected insertion-order ties, got [%s %s]", results[0].TaskID, results[1].TaskID)
	}
}

func TestRebuild(t *testing.T) {
	ix := New()
	for _, id := range []string{"a", "b", "c"} {
		if err := ix.Insert([]float32{1, 1}, meta(id)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	// Rebuild with one entry removed — the only way to delete.
	records := []Record{
		{Vector: []float32{1, 1}, Meta: meta("a")},
		{Vector: []float32{2, 2}, Meta: meta("c")},
	}
	if err := ix.Rebuild(records); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if ix.Len() != 2 {
		t.Errorf("Expected 2 entries after rebuild, got %d", ix.Len())
	}

	results, err := ix.Search([]float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, m := range results {
		if m.TaskID == "b" {
			t.Errorf("Expected b to be gone after rebuild")
		}
	}

	// An emptied index keeps its fixed dimension.
	if err := ix.Rebuild(nil); err != nil {
		t.Fatalf("Empty rebuild failed: %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Expected empty index, got %d entries", ix.Len())
	}
	if err := ix.Insert([]float32{1, 2, 3}, meta("d")); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected dimension to survive empty rebuild, got %v", err)
	}
}

func TestRebuildFailureKeepsPreviousContents(t *testing.T) {
	ix := New()
	for _, id := range []string{"a", "b", "c"} {
		if err := ix.Insert([]float32{1, 2, 3}, meta(id)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	// A bad record mid-list must not leave a partially rebuilt index.
	records := []Record{
		{Vector: []float32{1, 2, 3}, Meta: meta("a")},
		{Vector: []float32{1, 2}, Meta: meta("bad")},
		{Vector: []float32{4, 5, 6}, Meta: meta("c")},
	}
	err := ix.Rebuild(records)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}

	if ix.Len() != 3 {
		t.Errorf("Expected previous 3 entries to survive, got %d", ix.Len())
	}
	if ix.Dimension() != 3 {
		t.Errorf("Expected dimension unchanged, got %d", ix.Dimension())
	}
	results, err := ix.Search([]float32{1, 2, 3}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected all previous entries searchable, got %d", len(results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if results[i].TaskID != want {
			t.Errorf("Expected position %d to be %s, got %s", i, want, results[i].TaskID)
		}
	}
}
