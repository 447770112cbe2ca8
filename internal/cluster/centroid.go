// Package cluster holds the two read-only stores behind clustered search:
// the centroid index that routes a query to its nearest partitions, and the
// store of per-cluster embedding blocks and document metadata. Both are
// populated once at construction, validated eagerly, and never mutated, so
// any number of concurrent searches can read them without locking.
package cluster

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/orieg/edu-policy-navigator-sub001/internal/vector"
)

// Centroid is the representative vector of one corpus partition.
type Centroid struct {
	ClusterID string    `json:"cluster_id"`
	Vector    []float32 `json:"vector"`
}

// ScoredCentroid is a centroid paired with its similarity to a query.
type ScoredCentroid struct {
	ClusterID string
	Score     float64
}

// CentroidIndex is the ordered, immutable collection of cluster centroids.
// Insertion order is retained so exact score ties resolve deterministically.
type CentroidIndex struct {
	dims      int
	centroids []Centroid
	logger    *zap.Logger
}

// IndexOption configures a CentroidIndex.
type IndexOption func(*CentroidIndex)

// WithIndexLogger attaches a logger for clamp diagnostics. Without one the
// index stays silent.
func WithIndexLogger(logger *zap.Logger) IndexOption {
	return func(ci *CentroidIndex) {
		ci.logger = logger
	}
}

// NewCentroidIndex builds an index over the given centroids. The slice order
// becomes the tie-break order. Fails with ErrEmptyIndex on empty input, with
// *vector.ErrDimensionMismatch when any centroid disagrees with dims, and
// with *MalformedClusterError on a duplicate cluster ID.
func NewCentroidIndex(dims int, centroids []Centroid, opts ...IndexOption) (*CentroidIndex, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("centroid index: dimensions must be positive, got %d", dims)
	}
	if len(centroids) == 0 {
		return nil, ErrEmptyIndex
	}
	seen := make(map[string]bool, len(centroids))
	for _, c := range centroids {
		if len(c.Vector) != dims {
			return nil, fmt.Errorf("centroid %q: %w", c.ClusterID,
				&vector.ErrDimensionMismatch{Expected: dims, Actual: len(c.Vector)})
		}
		if seen[c.ClusterID] {
			return nil, &MalformedClusterError{ClusterID: c.ClusterID, Reason: "duplicate cluster id in centroid index"}
		}
		seen[c.ClusterID] = true
	}
	ci := &CentroidIndex{
		dims:      dims,
		centroids: append([]Centroid(nil), centroids...),
	}
	for _, opt := range opts {
		opt(ci)
	}
	return ci, nil
}

// Dimensions returns the shared vector dimensionality D.
func (ci *CentroidIndex) Dimensions() int { return ci.dims }

// Len returns the number of centroids.
func (ci *CentroidIndex) Len() int { return len(ci.centroids) }

// ClusterIDs returns the cluster identifiers in insertion order.
func (ci *CentroidIndex) ClusterIDs() []string {
	ids := make([]string, len(ci.centroids))
	for i, c := range ci.centroids {
		ids[i] = c.ClusterID
	}
	return ids
}

// TopClusters scores every centroid against query and returns the topM best,
// descending by score. Exact ties keep centroid insertion order (stable sort).
//
// topM is clamped rather than rejected: values <= 0 behave as 1, values past
// the centroid count behave as the full count. Both clamps are diagnostics,
// not errors; the index degrades to "search everything" instead of failing.
func (ci *CentroidIndex) TopClusters(query []float32, topM int) ([]ScoredCentroid, error) {
	if len(query) != ci.dims {
		return nil, &vector.ErrDimensionMismatch{Expected: ci.dims, Actual: len(query)}
	}
	if topM <= 0 {
		if ci.logger != nil {
			ci.logger.Debug("top clusters clamped", zap.Int("requested", topM), zap.Int("using", 1))
		}
		topM = 1
	}
	if topM > len(ci.centroids) {
		if ci.logger != nil {
			ci.logger.Debug("top clusters clamped",
				zap.Int("requested", topM), zap.Int("using", len(ci.centroids)))
		}
		topM = len(ci.centroids)
	}
	scored := make([]ScoredCentroid, len(ci.centroids))
	for i, c := range ci.centroids {
		// Lengths were validated at construction; Dot cannot fail here.
		score, _ := vector.Dot(query, c.Vector)
		scored[i] = ScoredCentroid{ClusterID: c.ClusterID, Score: score}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored[:topM], nil
}
