package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/orieg/edu-policy-navigator-sub001/internal/config"
	"github.com/orieg/edu-policy-navigator-sub001/internal/corpus"
	"github.com/orieg/edu-policy-navigator-sub001/internal/embedding"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
	"github.com/orieg/edu-policy-navigator-sub001/internal/server"
	"go.uber.org/zap"
)

const (
	e2eDimensions     = 16
	e2eClusters       = 6
	e2eDocsPerCluster = 25
	e2eSeed           = 42
)

func loadE2ECorpus(t *testing.T, c *Corpus) *corpus.Manager {
	t.Helper()
	dir := t.TempDir()
	if err := c.WriteJSON(dir); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	manager := corpus.NewManager(dir,
		corpus.WithManagerLogger(zap.NewNop()),
		corpus.WithSearchWorkers(4),
		corpus.WithLookup("", 1),
	)
	if err := manager.Load(); err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func TestE2E_SelfQueriesFindTheirDocument(t *testing.T) {
	c := BuildCorpus(e2eDimensions, e2eClusters, e2eDocsPerCluster, e2eSeed)
	manager := loadE2ECorpus(t, c)
	snap := manager.Snapshot()
	ctx := context.Background()

	for _, tc := range c.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			results, err := snap.Engine.Search(ctx, tc.Vector, models.SearchParams{
				TopClusters: e2eClusters,
				PerCluster:  e2eDocsPerCluster,
				Limit:       5,
			})
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if len(results) == 0 {
				t.Fatal("no results")
			}
			if results[0].ID != tc.ExpectedTopID {
				t.Errorf("top result = %s (%.4f), want %s", results[0].ID, results[0].Score, tc.ExpectedTopID)
			}
		})
	}
}

// A scan over every cluster with no per-cluster cap must reproduce the brute
// force ranking exactly.
func TestE2E_FullWidthScanMatchesBruteForce(t *testing.T) {
	c := BuildCorpus(e2eDimensions, e2eClusters, e2eDocsPerCluster, e2eSeed)
	manager := loadE2ECorpus(t, c)
	snap := manager.Snapshot()
	ctx := context.Background()

	const limit = 20
	for _, tc := range c.TestCases {
		results, err := snap.Engine.Search(ctx, tc.Vector, models.SearchParams{
			TopClusters: e2eClusters,
			PerCluster:  e2eDocsPerCluster,
			Limit:       limit,
		})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		want := c.BruteForceTopN(tc.Vector, limit)
		if len(results) != len(want) {
			t.Fatalf("%s: got %d results, want %d", tc.Description, len(results), len(want))
		}
		for i, res := range results {
			if res.ID != want[i] {
				t.Errorf("%s: rank %d = %s, want %s", tc.Description, i, res.ID, want[i])
			}
		}
	}
}

// Tight clusters mean routing to a few centroids should rarely lose the true
// nearest neighbor. Measure recall@1 over the self-query cases.
func TestE2E_NarrowScanRecall(t *testing.T) {
	c := BuildCorpus(e2eDimensions, e2eClusters, e2eDocsPerCluster, e2eSeed)
	manager := loadE2ECorpus(t, c)
	snap := manager.Snapshot()
	ctx := context.Background()

	hits := 0
	for _, tc := range c.TestCases {
		results, err := snap.Engine.Search(ctx, tc.Vector, models.SearchParams{
			TopClusters: 2,
			PerCluster:  e2eDocsPerCluster,
			Limit:       1,
		})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(results) > 0 && results[0].ID == tc.ExpectedTopID {
			hits++
		}
	}
	// Self queries sit inside their own cluster, so even a 2-cluster scan
	// should find every one of them.
	if hits != len(c.TestCases) {
		t.Errorf("recall@1 with 2-cluster scan: %d/%d", hits, len(c.TestCases))
	}
}

func TestE2E_SQLiteImportParity(t *testing.T) {
	c := BuildCorpus(e2eDimensions, e2eClusters, 10, e2eSeed)
	jsonDir := t.TempDir()
	if err := c.WriteJSON(jsonDir); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "corpus.db")
	n, err := corpus.Import(jsonDir, dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != len(c.Docs) {
		t.Fatalf("imported %d documents, want %d", n, len(c.Docs))
	}

	jsonMgr := corpus.NewManager(jsonDir, corpus.WithManagerLogger(zap.NewNop()))
	if err := jsonMgr.Load(); err != nil {
		t.Fatalf("load json corpus: %v", err)
	}
	defer jsonMgr.Close()
	dbMgr := corpus.NewManager(dbPath, corpus.WithManagerLogger(zap.NewNop()))
	if err := dbMgr.Load(); err != nil {
		t.Fatalf("load sqlite corpus: %v", err)
	}
	defer dbMgr.Close()

	ctx := context.Background()
	params := models.SearchParams{TopClusters: e2eClusters, PerCluster: 10, Limit: 10}
	for _, tc := range c.TestCases {
		fromJSON, err := jsonMgr.Snapshot().Engine.Search(ctx, tc.Vector, params)
		if err != nil {
			t.Fatalf("json search: %v", err)
		}
		fromDB, err := dbMgr.Snapshot().Engine.Search(ctx, tc.Vector, params)
		if err != nil {
			t.Fatalf("sqlite search: %v", err)
		}
		if len(fromJSON) != len(fromDB) {
			t.Fatalf("%s: json %d results, sqlite %d", tc.Description, len(fromJSON), len(fromDB))
		}
		for i := range fromJSON {
			if fromJSON[i].ID != fromDB[i].ID || fromJSON[i].Score != fromDB[i].Score {
				t.Errorf("%s: rank %d diverges: json %s/%.6f sqlite %s/%.6f",
					tc.Description, i, fromJSON[i].ID, fromJSON[i].Score, fromDB[i].ID, fromDB[i].Score)
			}
		}
	}
}

func TestE2E_HTTPFlow(t *testing.T) {
	c := BuildCorpus(e2eDimensions, e2eClusters, 10, e2eSeed)
	manager := loadE2ECorpus(t, c)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	srv := server.NewServer(manager, embedding.NewMockEmbedder(e2eDimensions), cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// Vector search over the API.
	tc := c.TestCases[0]
	body, _ := json.Marshal(map[string]interface{}{"vector": tc.Vector, "limit": 5})
	resp, err := http.Post(ts.URL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("search request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	var searchResp models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		t.Fatalf("decode search response: %v", err)
	}
	if searchResp.Total == 0 || searchResp.Results[0].ID != tc.ExpectedTopID {
		t.Fatalf("search top = %+v, want %s", searchResp.Results, tc.ExpectedTopID)
	}
	if searchResp.Results[0].Rank != 1 {
		t.Errorf("top result rank = %d, want 1", searchResp.Results[0].Rank)
	}

	// Name lookup for a known record.
	doc := c.Docs[0]
	lookupURL := fmt.Sprintf("%s/api/v1/lookup?q=%s", ts.URL, "coastal+elementary")
	lresp, err := http.Get(lookupURL)
	if err != nil {
		t.Fatalf("lookup request: %v", err)
	}
	defer lresp.Body.Close()
	if lresp.StatusCode != http.StatusOK {
		t.Fatalf("lookup status = %d", lresp.StatusCode)
	}
	var lookupBody struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
		Total int `json:"total"`
	}
	if err := json.NewDecoder(lresp.Body).Decode(&lookupBody); err != nil {
		t.Fatalf("decode lookup response: %v", err)
	}
	if lookupBody.Total == 0 {
		t.Error("lookup for a cluster theme returned no matches")
	}

	// Fetch a document by ID.
	dresp, err := http.Get(ts.URL + "/api/v1/documents/" + doc.ID)
	if err != nil {
		t.Fatalf("document request: %v", err)
	}
	defer dresp.Body.Close()
	if dresp.StatusCode != http.StatusOK {
		t.Fatalf("document status = %d", dresp.StatusCode)
	}
	var fetched models.Document
	if err := json.NewDecoder(dresp.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if fetched.ID != doc.ID || fetched.Name() != doc.Name {
		t.Errorf("fetched document = %+v, want id %s name %s", fetched, doc.ID, doc.Name)
	}

	// Status and reload round out the admin surface.
	sresp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	defer sresp.Body.Close()
	if sresp.StatusCode != http.StatusOK {
		t.Fatalf("status status = %d", sresp.StatusCode)
	}
	var status struct {
		Clusters  int `json:"clusters"`
		Documents int `json:"documents"`
	}
	if err := json.NewDecoder(sresp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Clusters != e2eClusters || status.Documents != len(c.Docs) {
		t.Errorf("status = %+v, want %d clusters %d documents", status, e2eClusters, len(c.Docs))
	}

	rresp, err := http.Post(ts.URL+"/api/v1/reload", "application/json", nil)
	if err != nil {
		t.Fatalf("reload request: %v", err)
	}
	defer rresp.Body.Close()
	if rresp.StatusCode != http.StatusOK {
		t.Fatalf("reload status = %d", rresp.StatusCode)
	}
}
