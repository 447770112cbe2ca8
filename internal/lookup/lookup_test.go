package lookup

import (
	"context"
	"testing"

	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
)

func testDocs() []*models.Document {
	return []*models.Document{
		{
			ID:    "dist-001",
			Text:  "Oakland Unified School District serves the city of Oakland",
			Attrs: map[string]interface{}{"name": "Oakland Unified"},
		},
		{
			ID:    "dist-002",
			Text:  "Berkeley Unified School District covers Berkeley",
			Attrs: map[string]interface{}{"name": "Berkeley Unified"},
		},
		{
			ID:    "school-003",
			Text:  "Claremont Middle School is in the Rockridge neighborhood",
			Attrs: map[string]interface{}{"name": "Claremont Middle School"},
		},
	}
}

func TestSearchByName(t *testing.T) {
	idx, err := New(testDocs())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), "oakland", 10, false)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results for oakland")
	}
	if results[0].ID != "dist-001" {
		t.Errorf("best hit = %s, want dist-001", results[0].ID)
	}
	if results[0].Name != "Oakland Unified" {
		t.Errorf("name = %q, want Oakland Unified", results[0].Name)
	}
}

func TestSearchByText(t *testing.T) {
	idx, err := New(testDocs())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), "rockridge", 10, false)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "school-003" {
		t.Fatalf("got %v, want single hit school-003", results)
	}
}

func TestSearchFuzzy(t *testing.T) {
	idx, err := New(testDocs())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer idx.Close()

	// One transposition away from "berkeley".
	results, err := idx.Search(context.Background(), "berkelye", 10, true)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	found := false
	for _, r := range results {
		if r.ID == "dist-002" {
			found = true
		}
	}
	if !found {
		t.Error("fuzzy search missed dist-002 for berkelye")
	}
}

func TestSearchOnDisk(t *testing.T) {
	path := t.TempDir() + "/lookup.bleve"
	idx, err := New(testDocs(), WithPath(path))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer idx.Close()

	if idx.DocCount() != 3 {
		t.Errorf("DocCount = %d, want 3", idx.DocCount())
	}
	results, err := idx.Search(context.Background(), "claremont", 5, false)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "school-003" {
		t.Fatalf("got %v, want school-003 first", results)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), "anything", 5, false)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty index returned %d results", len(results))
	}
}
