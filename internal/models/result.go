package models

// SearchResult is a single scored hit. One is created per candidate kept in
// the final merge; the engine does not retain them after Search returns.
type SearchResult struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Score    float64   `json:"score"`
	Document *Document `json:"document"`
	// Rank is assigned by the service layer (1-based over the final,
	// filtered results); the engine leaves it zero.
	Rank int `json:"rank,omitempty"`
}

// SearchResponse is the HTTP response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query,omitempty"`
}
