// Package integration wires the mock embedder, corpus manager, and engine
// together the way the server does, with a corpus built from embedded text.
package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/orieg/edu-policy-navigator-sub001/internal/corpus"
	"github.com/orieg/edu-policy-navigator-sub001/internal/embedding"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
	"github.com/orieg/edu-policy-navigator-sub001/pkg/utils"
	"go.uber.org/zap"
)

const integrationDims = 32

// districtGroups are small hand-picked clusters; within each group the texts
// share a subject, mirroring how the offline pipeline partitions records.
var districtGroups = [][]struct {
	id   string
	name string
	text string
}{
	{
		{"d-coastal-1", "Pacific Elementary", "Pacific Elementary is a one-school coastal district with a farm-to-table lunch program."},
		{"d-coastal-2", "Cabrillo Unified", "Cabrillo Unified serves coastal communities from Half Moon Bay to the Pescadero marshlands."},
	},
	{
		{"d-valley-1", "Central Valley Unified", "Central Valley Unified operates agricultural education programs across a large rural attendance area."},
		{"d-valley-2", "Sanger Unified", "Sanger Unified runs dual-immersion programs in a growing valley town."},
	},
	{
		{"d-urban-1", "Oakland Unified", "Oakland Unified is a large urban district with extensive charter school oversight duties."},
		{"d-urban-2", "Long Beach Unified", "Long Beach Unified is an urban district known for districtwide instructional coherence."},
	},
}

// buildEmbeddedCorpus embeds every group's texts with the mock embedder,
// takes each group's normalized mean as its centroid, and writes the result
// as a JSON snapshot. The same embedder at query time reproduces document
// vectors exactly for identical text.
func buildEmbeddedCorpus(t *testing.T, embedder embedding.Embedder) string {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "clusters"), 0755); err != nil {
		t.Fatal(err)
	}

	manifest := map[string]interface{}{"dimensions": integrationDims}
	var manifestClusters []map[string]interface{}
	clusterIDs := []string{"coastal", "valley", "urban"}

	for g, group := range districtGroups {
		mean := make([]float32, integrationDims)
		var vectors []float32
		var documents []map[string]interface{}
		for _, d := range group {
			vec, err := embedder.Embed(ctx, d.text)
			if err != nil {
				t.Fatalf("embed %s: %v", d.id, err)
			}
			for i, v := range vec {
				mean[i] += v
			}
			vectors = append(vectors, vec...)
			documents = append(documents, map[string]interface{}{
				"id":    d.id,
				"text":  d.text,
				"attrs": map[string]interface{}{"name": d.name},
			})
		}
		utils.NormalizeL2(mean)
		manifestClusters = append(manifestClusters, map[string]interface{}{
			"id":       clusterIDs[g],
			"centroid": mean,
		})
		writeJSON(t, filepath.Join(dir, "clusters", clusterIDs[g]+".json"), map[string]interface{}{
			"cluster_id":  clusterIDs[g],
			"dimensions":  integrationDims,
			"num_vectors": len(group),
			"vectors":     vectors,
			"documents":   documents,
		})
	}
	manifest["clusters"] = manifestClusters
	writeJSON(t, filepath.Join(dir, "centroids.json"), manifest)
	return dir
}

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestIntegration_TextQueryFindsItsDocument(t *testing.T) {
	embedder := embedding.NewMockEmbedder(integrationDims)
	defer embedder.Close()

	dir := buildEmbeddedCorpus(t, embedder)
	manager := corpus.NewManager(dir,
		corpus.WithManagerLogger(zap.NewNop()),
		corpus.WithLookup("", 1),
	)
	if err := manager.Load(); err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	defer manager.Close()

	snap := manager.Snapshot()
	ctx := context.Background()

	for _, group := range districtGroups {
		for _, d := range group {
			// Same text, same embedder: the query vector equals the stored
			// row, so the document must come back first with score ~1.
			vec, err := embedder.Embed(ctx, d.text)
			if err != nil {
				t.Fatalf("embed query: %v", err)
			}
			results, err := snap.Engine.Search(ctx, vec, models.SearchParams{
				TopClusters: 3,
				PerCluster:  10,
				Limit:       3,
			})
			if err != nil {
				t.Fatalf("search for %s: %v", d.id, err)
			}
			if len(results) == 0 {
				t.Fatalf("search for %s: no results", d.id)
			}
			if results[0].ID != d.id {
				t.Errorf("query for %s: top result = %s (%.4f)", d.id, results[0].ID, results[0].Score)
			}
			if results[0].Score < 0.999 {
				t.Errorf("self match for %s scored %.4f, want ~1", d.id, results[0].Score)
			}
		}
	}
}

func TestIntegration_LookupFindsByName(t *testing.T) {
	embedder := embedding.NewMockEmbedder(integrationDims)
	defer embedder.Close()

	dir := buildEmbeddedCorpus(t, embedder)
	manager := corpus.NewManager(dir,
		corpus.WithManagerLogger(zap.NewNop()),
		corpus.WithLookup("", 1),
	)
	if err := manager.Load(); err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	defer manager.Close()

	snap := manager.Snapshot()
	results, err := snap.Lookup.Search(context.Background(), "cabrillo", 5, false)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("lookup for cabrillo returned nothing")
	}
	if results[0].ID != "d-coastal-2" {
		t.Errorf("lookup top = %s, want d-coastal-2", results[0].ID)
	}
}

func TestIntegration_ReloadPicksUpNewCorpus(t *testing.T) {
	embedder := embedding.NewMockEmbedder(integrationDims)
	defer embedder.Close()

	dir := buildEmbeddedCorpus(t, embedder)
	manager := corpus.NewManager(dir,
		corpus.WithManagerLogger(zap.NewNop()),
		corpus.WithLookup("", 1),
	)
	if err := manager.Load(); err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	defer manager.Close()
	before := manager.Snapshot()

	// Append a document to one cluster file and reload.
	path := filepath.Join(dir, "clusters", "coastal.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var block map[string]interface{}
	if err := json.Unmarshal(raw, &block); err != nil {
		t.Fatal(err)
	}
	extraText := "Pescadero Elementary is a tiny coastal district with multi-grade classrooms."
	vec, err := embedder.Embed(context.Background(), extraText)
	if err != nil {
		t.Fatal(err)
	}
	vectors := block["vectors"].([]interface{})
	for _, v := range vec {
		vectors = append(vectors, v)
	}
	block["vectors"] = vectors
	docs := block["documents"].([]interface{})
	docs = append(docs, map[string]interface{}{"id": "d-coastal-3", "text": extraText})
	block["documents"] = docs
	block["num_vectors"] = len(docs)
	writeJSON(t, path, block)

	if err := manager.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	after := manager.Snapshot()
	if after == before {
		t.Fatal("reload did not swap the snapshot")
	}
	if _, ok := after.Store.Document("d-coastal-3"); !ok {
		t.Error("reloaded snapshot missing the appended document")
	}
	if _, ok := before.Store.Document("d-coastal-3"); ok {
		t.Error("old snapshot should not gain documents")
	}

	// A request holding the old snapshot across the reload still gets lookup
	// answers from it; the new snapshot indexes the appended document.
	old, err := before.Lookup.Search(context.Background(), "cabrillo", 5, false)
	if err != nil {
		t.Fatalf("lookup on old snapshot after reload: %v", err)
	}
	if len(old) == 0 || old[0].ID != "d-coastal-2" {
		t.Errorf("old snapshot lookup = %v, want d-coastal-2", old)
	}
	fresh, err := after.Lookup.Search(context.Background(), "pescadero elementary", 5, false)
	if err != nil {
		t.Fatalf("lookup on new snapshot: %v", err)
	}
	found := false
	for _, r := range fresh {
		if r.ID == "d-coastal-3" {
			found = true
		}
	}
	if !found {
		t.Errorf("new snapshot lookup missing d-coastal-3: %v", fresh)
	}
}
