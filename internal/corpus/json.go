package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orieg/edu-policy-navigator-sub001/internal/cluster"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
)

// centroidsFile is the JSON-directory manifest: the shared dimensionality and
// the ordered cluster list. Array order is the insertion (tie-break) order.
type centroidsFile struct {
	Dimensions int `json:"dimensions"`
	Clusters   []struct {
		ID       string    `json:"id"`
		Centroid []float32 `json:"centroid"`
	} `json:"clusters"`
}

// clusterFile is one cluster's embeddings and documents, as emitted by the
// offline pipeline.
type clusterFile struct {
	ClusterID  string         `json:"cluster_id"`
	Dimensions int            `json:"dimensions"`
	NumVectors int            `json:"num_vectors"`
	Vectors    []float32      `json:"vectors"`
	Documents  []jsonDocument `json:"documents"`
}

type jsonDocument struct {
	ID    string                 `json:"id"`
	Text  string                 `json:"text"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
}

// loadJSONDir reads centroids.json plus clusters/<id>.json for every listed
// cluster. A listed cluster without a file is a load error here (unlike a
// stale reference at query time): the snapshot itself promises the file.
func loadJSONDir(dir string) (*Corpus, error) {
	manifestPath := filepath.Join(dir, "centroids.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read centroid manifest: %w", err)
	}
	var manifest centroidsFile
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestPath, err)
	}

	c := &Corpus{
		Dimensions: manifest.Dimensions,
		Centroids:  make([]cluster.Centroid, 0, len(manifest.Clusters)),
		Records:    make([]*cluster.Record, 0, len(manifest.Clusters)),
		Path:       dir,
		Format:     FormatJSON,
	}
	for _, entry := range manifest.Clusters {
		c.Centroids = append(c.Centroids, cluster.Centroid{
			ClusterID: entry.ID,
			Vector:    entry.Centroid,
		})
		rec, err := loadClusterFile(filepath.Join(dir, "clusters", entry.ID+".json"))
		if err != nil {
			return nil, fmt.Errorf("cluster %q: %w", entry.ID, err)
		}
		c.Records = append(c.Records, rec)
	}
	return c, nil
}

func loadClusterFile(path string) (*cluster.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cf clusterFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	docs := make([]*models.Document, len(cf.Documents))
	for i, d := range cf.Documents {
		docs[i] = &models.Document{ID: d.ID, Text: d.Text, Attrs: d.Attrs}
	}
	return &cluster.Record{
		ClusterID: cf.ClusterID,
		Block: cluster.EmbeddingBlock{
			ClusterID:  cf.ClusterID,
			Vectors:    cf.Vectors,
			NumVectors: cf.NumVectors,
			Dims:       cf.Dimensions,
		},
		Docs: docs,
	}, nil
}
