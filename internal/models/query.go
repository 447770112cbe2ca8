package models

import "fmt"

// SearchParams bounds the three stages of a clustered search: how many
// clusters stage 1 keeps, how many candidates each scanned cluster keeps in
// stage 2, and how many results survive the final merge.
type SearchParams struct {
	TopClusters int
	PerCluster  int
	Limit       int
}

// SearchQuery represents an API search request. Exactly one of Query (text,
// embedded server-side) or Vector (pre-embedded, length must equal the corpus
// dimensionality) must be provided.
type SearchQuery struct {
	Query       string    `json:"query,omitempty"`
	Vector      []float32 `json:"vector,omitempty"`
	Limit       int       `json:"limit,omitempty"`
	TopClusters int       `json:"top_clusters,omitempty"`
	PerCluster  int       `json:"per_cluster,omitempty"`
	// MinScore drops results scoring below it after the merge. Applied by the
	// service layer, not the engine. Unset means use the configured default;
	// an explicit 0 disables filtering.
	MinScore *float64 `json:"min_score,omitempty"`
}

// Validate ensures the search query has a usable payload and defaults the
// limit. Returns an error when neither text nor vector is present, or both
// are. The upper bound on Limit belongs to the service layer, which knows the
// configured maximum.
func (q *SearchQuery) Validate() error {
	if q.Query == "" && len(q.Vector) == 0 {
		return fmt.Errorf("query or vector is required")
	}
	if q.Query != "" && len(q.Vector) > 0 {
		return fmt.Errorf("query and vector are mutually exclusive")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	return nil
}

// Params returns the engine parameters encoded in the request, with the given
// defaults for stage bounds the request leaves unset.
func (q *SearchQuery) Params(defaultTopClusters, defaultPerCluster int) SearchParams {
	p := SearchParams{
		TopClusters: q.TopClusters,
		PerCluster:  q.PerCluster,
		Limit:       q.Limit,
	}
	if p.TopClusters == 0 {
		p.TopClusters = defaultTopClusters
	}
	if p.PerCluster == 0 {
		p.PerCluster = defaultPerCluster
	}
	return p
}
