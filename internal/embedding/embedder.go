// Package embedding turns query text into vectors compatible with the
// corpus embeddings. The corpus itself is embedded offline by the data
// pipeline; at serving time only queries pass through here.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must return
// unit-normalized vectors of exactly Dimensions() floats: the search engine
// scores by inner product and trusts this contract rather than normalizing
// defensively.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
