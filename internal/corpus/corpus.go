// Package corpus loads the offline pipeline's output — cluster centroids,
// flat embedding blocks, and document metadata — into the immutable in-memory
// structures the search engine reads. All loading and validation happens
// before a search engine is constructed; the engine never touches disk.
//
// Two snapshot formats are supported: a JSON directory (the pipeline's raw
// output, one file per cluster) and a single SQLite database produced by the
// importer for faster cold starts.
package corpus

import (
	"fmt"
	"math"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/orieg/edu-policy-navigator-sub001/internal/cluster"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
	"github.com/orieg/edu-policy-navigator-sub001/internal/vector"
)

// Format identifies how a corpus snapshot is laid out on disk.
type Format string

const (
	// FormatJSON is a directory holding centroids.json plus clusters/<id>.json.
	FormatJSON Format = "json"
	// FormatSQLite is a single SQLite database file.
	FormatSQLite Format = "sqlite"
)

// normDriftTolerance bounds how far an embedding's L2 norm may drift from 1
// before the loader warns. The engine trusts the unit-norm contract either
// way; drift only degrades score interpretability, never correctness of the
// relative ranking within a query.
const normDriftTolerance = 1e-3

// Corpus is one fully loaded, validated snapshot. Centroids preserve the
// snapshot's order, which becomes the search tie-break order.
type Corpus struct {
	Dimensions int
	Centroids  []cluster.Centroid
	Records    []*cluster.Record
	Path       string
	Format     Format
}

// NumDocuments returns the total document count across all clusters.
func (c *Corpus) NumDocuments() int {
	n := 0
	for _, rec := range c.Records {
		n += rec.Block.NumVectors
	}
	return n
}

// AllDocuments returns every document across all clusters, in cluster order.
// Used to build the lookup index over one snapshot.
func (c *Corpus) AllDocuments() []*models.Document {
	docs := make([]*models.Document, 0, c.NumDocuments())
	for _, rec := range c.Records {
		docs = append(docs, rec.Docs...)
	}
	return docs
}

// Load reads a corpus snapshot from path, auto-detecting the format: a
// directory loads as JSON, a file as SQLite. The loaded data is checked
// against the cluster-layout invariants (a malformed cluster fails the whole
// load) and diagnosed for unit-norm drift. logger may be nil.
func Load(path string, logger *zap.Logger) (*Corpus, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat corpus path: %w", err)
	}
	var c *Corpus
	if info.IsDir() {
		c, err = loadJSONDir(path)
	} else {
		if !strings.HasSuffix(path, ".db") && !strings.HasSuffix(path, ".sqlite") && logger != nil {
			logger.Warn("corpus file lacks a .db/.sqlite suffix, treating as SQLite",
				zap.String("path", path))
		}
		c, err = loadSQLite(path)
	}
	if err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.diagnoseNorms(logger)
	return c, nil
}

// validate runs the same construction-time checks the cluster package
// enforces, so a bad snapshot fails at load with a cluster-level reason
// instead of half-building an engine.
func (c *Corpus) validate() error {
	if _, err := cluster.NewCentroidIndex(c.Dimensions, c.Centroids); err != nil {
		return fmt.Errorf("corpus %s: %w", c.Path, err)
	}
	if _, err := cluster.NewStore(c.Dimensions, c.Records); err != nil {
		return fmt.Errorf("corpus %s: %w", c.Path, err)
	}
	return nil
}

// diagnoseNorms warns once per cluster whose worst embedding norm drifts
// beyond tolerance. Diagnostic only: the engine trusts upstream
// normalization and never normalizes defensively.
func (c *Corpus) diagnoseNorms(logger *zap.Logger) {
	if logger == nil {
		return
	}
	for _, rec := range c.Records {
		var worst float64
		for i := 0; i < rec.Block.NumVectors; i++ {
			drift := math.Abs(vector.L2Norm(rec.Block.Row(i)) - 1)
			if drift > worst {
				worst = drift
			}
		}
		if worst > normDriftTolerance {
			logger.Warn("cluster embeddings drift from unit norm; scores are rank-only",
				zap.String("cluster_id", rec.ClusterID),
				zap.Float64("max_drift", worst))
		}
	}
}
