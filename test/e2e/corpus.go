// Package e2e provides end-to-end tests over a synthetic district corpus.
package e2e

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
)

// Doc is one synthetic corpus record with its embedding.
type Doc struct {
	ID        string
	Name      string
	Text      string
	ClusterID string
	Vector    []float32
}

// QueryCase is one query with the document its vector was derived from. A
// full-width scan must return that document first.
type QueryCase struct {
	Description   string
	Vector        []float32
	ExpectedTopID string
}

// Corpus is a deterministic synthetic corpus: NumClusters well-separated
// centroid directions, DocsPerCluster unit vectors scattered tightly around
// each.
type Corpus struct {
	Dimensions     int
	NumClusters    int
	DocsPerCluster int
	Centroids      [][]float32
	Docs           []*Doc
	TestCases      []QueryCase
}

// BuildCorpus generates a corpus from the given seed. Same seed, same corpus.
func BuildCorpus(dims, numClusters, docsPerCluster int, seed int64) *Corpus {
	rng := rand.New(rand.NewSource(seed))
	c := &Corpus{
		Dimensions:     dims,
		NumClusters:    numClusters,
		DocsPerCluster: docsPerCluster,
	}
	for k := 0; k < numClusters; k++ {
		centroid := randomUnitVector(rng, dims)
		c.Centroids = append(c.Centroids, centroid)
		clusterID := fmt.Sprintf("c%02d", k)
		for i := 0; i < docsPerCluster; i++ {
			vec := perturb(rng, centroid, 0.15)
			doc := &Doc{
				ID:        fmt.Sprintf("district-%02d-%03d", k, i),
				Name:      DistrictName(k, i),
				Text:      DistrictText(k, i),
				ClusterID: clusterID,
				Vector:    vec,
			}
			c.Docs = append(c.Docs, doc)
		}
	}
	// Query cases: one document per cluster, queried by its own vector.
	for k := 0; k < numClusters; k++ {
		doc := c.Docs[k*docsPerCluster+rng.Intn(docsPerCluster)]
		c.TestCases = append(c.TestCases, QueryCase{
			Description:   fmt.Sprintf("self query finds %s", doc.ID),
			Vector:        append([]float32(nil), doc.Vector...),
			ExpectedTopID: doc.ID,
		})
	}
	return c
}

// WriteJSON lays the corpus out as a JSON snapshot directory.
func (c *Corpus) WriteJSON(dir string) error {
	type manifestCluster struct {
		ID       string    `json:"id"`
		Centroid []float32 `json:"centroid"`
	}
	manifest := struct {
		Dimensions int               `json:"dimensions"`
		Clusters   []manifestCluster `json:"clusters"`
	}{Dimensions: c.Dimensions}
	for k, centroid := range c.Centroids {
		manifest.Clusters = append(manifest.Clusters, manifestCluster{
			ID:       fmt.Sprintf("c%02d", k),
			Centroid: centroid,
		})
	}
	if err := writeJSONFile(filepath.Join(dir, "centroids.json"), manifest); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, "clusters"), 0755); err != nil {
		return err
	}
	type jsonDoc struct {
		ID    string                 `json:"id"`
		Text  string                 `json:"text"`
		Attrs map[string]interface{} `json:"attrs,omitempty"`
	}
	for k := 0; k < c.NumClusters; k++ {
		clusterID := fmt.Sprintf("c%02d", k)
		block := struct {
			ClusterID  string    `json:"cluster_id"`
			Dimensions int       `json:"dimensions"`
			NumVectors int       `json:"num_vectors"`
			Vectors    []float32 `json:"vectors"`
			Documents  []jsonDoc `json:"documents"`
		}{ClusterID: clusterID, Dimensions: c.Dimensions}
		for _, doc := range c.Docs {
			if doc.ClusterID != clusterID {
				continue
			}
			block.Vectors = append(block.Vectors, doc.Vector...)
			block.Documents = append(block.Documents, jsonDoc{
				ID:    doc.ID,
				Text:  doc.Text,
				Attrs: map[string]interface{}{"name": doc.Name},
			})
		}
		block.NumVectors = len(block.Documents)
		if err := writeJSONFile(filepath.Join(dir, "clusters", clusterID+".json"), block); err != nil {
			return err
		}
	}
	return nil
}

// BruteForceTopN ranks every document in the corpus by dot product against
// query and returns the top n IDs. Ties keep corpus order.
func (c *Corpus) BruteForceTopN(query []float32, n int) []string {
	type scored struct {
		id    string
		score float64
	}
	all := make([]scored, 0, len(c.Docs))
	for _, doc := range c.Docs {
		var sum float64
		for i, v := range doc.Vector {
			sum += float64(v) * float64(query[i])
		}
		all = append(all, scored{id: doc.ID, score: sum})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	if n > len(all) {
		n = len(all)
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = all[i].id
	}
	return ids
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func randomUnitVector(rng *rand.Rand, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	normalize(v)
	return v
}

// perturb returns a unit vector near base: base plus gaussian noise scaled by
// spread, renormalized.
func perturb(rng *rand.Rand, base []float32, spread float64) []float32 {
	v := make([]float32, len(base))
	for i := range v {
		v[i] = base[i] + float32(rng.NormFloat64()*spread)
	}
	normalize(v)
	return v
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
