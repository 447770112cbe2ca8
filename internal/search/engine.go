// Package search implements two-stage clustered approximate nearest-neighbor
// search over the centroid index and cluster store.
package search

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/orieg/edu-policy-navigator-sub001/internal/cluster"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
)

// Engine runs two-stage clustered search: stage 1 routes the query to its
// nearest partitions by centroid score, stage 2 linearly scans those
// partitions, and the merged candidates are re-ranked and truncated.
//
// Results approximate the corpus-wide nearest neighbors: they are the best
// candidates restricted to the union of the selected clusters, so recall is
// bounded by how well the offline partitioning localizes true neighbors.
// The approximation collapses to exact search when TopClusters covers every
// cluster and PerCluster covers the largest one.
//
// The engine holds no mutable state; one Engine serves any number of
// concurrent callers.
type Engine struct {
	index   *cluster.CentroidIndex
	store   *cluster.Store
	workers int
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger for soft diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithWorkers caps stage-2 fan-out at n concurrent cluster scans. Values
// below 1 fall back to GOMAXPROCS; 1 scans sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// NewEngine wires the centroid index and cluster store together. Both must
// have been built for the same dimensionality.
func NewEngine(index *cluster.CentroidIndex, store *cluster.Store, opts ...Option) (*Engine, error) {
	if index == nil || store == nil {
		return nil, fmt.Errorf("search engine: index and store are required")
	}
	if index.Dimensions() != store.Dimensions() {
		return nil, fmt.Errorf("search engine: index dimensionality %d disagrees with store %d",
			index.Dimensions(), store.Dimensions())
	}
	e := &Engine{index: index, store: store}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e, nil
}

// Dimensions returns the vector dimensionality the engine was built for.
func (e *Engine) Dimensions() int { return e.index.Dimensions() }

// Search returns up to params.Limit results for query, descending by score.
//
// TopClusters and PerCluster clamp per the index and store policies;
// Limit <= 0 returns an empty result set, which is a valid outcome and not an
// error. A cluster selected by the index but absent from the store
// contributes nothing. When ctx is cancelled mid-search the whole call fails
// with ctx.Err(); partial results are never returned as if complete.
func (e *Engine) Search(ctx context.Context, query []float32, params models.SearchParams) ([]*models.SearchResult, error) {
	selected, err := e.index.TopClusters(query, params.TopClusters)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return []*models.SearchResult{}, nil
	}

	// Per-cluster slots indexed by centroid rank keep the merge input
	// deterministic regardless of goroutine scheduling.
	slots := make([][]*models.SearchResult, len(selected))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for rank, sc := range selected {
		rank, sc := rank, sc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hits, err := e.store.SearchCluster(query, sc.ClusterID, params.PerCluster)
			if err != nil {
				return fmt.Errorf("cluster %q: %w", sc.ClusterID, err)
			}
			slots[rank] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Size the merge buffer from what stage 2 actually produced; PerCluster is
	// caller input and may be arbitrarily large.
	total := 0
	for _, hits := range slots {
		total += len(hits)
	}
	merged := make([]*models.SearchResult, 0, total)
	for rank, hits := range slots {
		if len(hits) == 0 && e.logger != nil {
			e.logger.Debug("cluster contributed no candidates",
				zap.String("cluster_id", selected[rank].ClusterID))
		}
		merged = append(merged, hits...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if params.Limit < 0 {
		params.Limit = 0
	}
	if params.Limit < len(merged) {
		merged = merged[:params.Limit]
	}
	return merged, nil
}
