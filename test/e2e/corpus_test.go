package e2e

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func statPath(dir, rel string) (os.FileInfo, error) {
	return os.Stat(filepath.Join(dir, rel))
}

func TestBuildCorpus_deterministic(t *testing.T) {
	a := BuildCorpus(8, 4, 10, 42)
	b := BuildCorpus(8, 4, 10, 42)
	if len(a.Docs) != 40 || len(b.Docs) != 40 {
		t.Fatalf("expected 40 docs, got %d and %d", len(a.Docs), len(b.Docs))
	}
	for i := range a.Docs {
		if a.Docs[i].ID != b.Docs[i].ID {
			t.Fatalf("doc %d: id %q vs %q", i, a.Docs[i].ID, b.Docs[i].ID)
		}
		for j := range a.Docs[i].Vector {
			if a.Docs[i].Vector[j] != b.Docs[i].Vector[j] {
				t.Fatalf("doc %d component %d differs between same-seed builds", i, j)
			}
		}
	}
}

func TestBuildCorpus_unitNorm(t *testing.T) {
	c := BuildCorpus(16, 3, 5, 7)
	check := func(label string, v []float32) {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if math.Abs(math.Sqrt(sum)-1) > 1e-3 {
			t.Errorf("%s: norm %f, want 1", label, math.Sqrt(sum))
		}
	}
	for _, centroid := range c.Centroids {
		check("centroid", centroid)
	}
	for _, doc := range c.Docs {
		check(doc.ID, doc.Vector)
	}
}

func TestBruteForceTopN_selfQuery(t *testing.T) {
	c := BuildCorpus(8, 4, 10, 42)
	for _, tc := range c.TestCases {
		top := c.BruteForceTopN(tc.Vector, 1)
		if len(top) != 1 || top[0] != tc.ExpectedTopID {
			t.Errorf("%s: brute force top = %v, want %s", tc.Description, top, tc.ExpectedTopID)
		}
	}
}

func TestWriteJSON_layout(t *testing.T) {
	c := BuildCorpus(4, 2, 3, 1)
	dir := t.TempDir()
	if err := c.WriteJSON(dir); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	// The loader is the real check; here just confirm the files exist.
	for _, p := range []string{"centroids.json", "clusters/c00.json", "clusters/c01.json"} {
		if _, err := statPath(dir, p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
}
