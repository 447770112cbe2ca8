// Package lookup provides keyword lookup over record names and text. It is
// the data service behind the directory pages: given "oakland unified" it
// returns matching district/school records by name, with spelling
// suggestions for near-misses. Semantic queries belong to the search engine,
// not here.
package lookup

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
)

// Result is a single lookup hit.
type Result struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// indexedRecord is the shape bleve indexes per document.
type indexedRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// Index is a bleve index over one corpus snapshot. It is rebuilt whenever the
// corpus reloads and never updated in place.
type Index struct {
	idx       bleve.Index
	names     map[string]string // document id -> display name
	fuzziness int
	suggester *Suggester
	logger    *zap.Logger
}

// Option configures an Index.
type Option func(*indexConfig)

type indexConfig struct {
	path      string
	fuzziness int
	logger    *zap.Logger
}

// WithPath stores the index on disk at path instead of in memory. Any
// existing index at path is replaced, since the corpus snapshot it reflected
// may have changed.
func WithPath(path string) Option {
	return func(c *indexConfig) { c.path = path }
}

// WithFuzziness sets the edit distance used by fuzzy lookup and the
// suggester. Default 2.
func WithFuzziness(n int) Option {
	return func(c *indexConfig) {
		if n > 0 {
			c.fuzziness = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *indexConfig) { c.logger = logger }
}

// New indexes the given documents. Records without a name attribute are still
// indexed by text and id, they just render with an empty name.
func New(docs []*models.Document, opts ...Option) (*Index, error) {
	cfg := indexConfig{fuzziness: 2}
	for _, opt := range opts {
		opt(&cfg)
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so district names
	// match the words users type.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("id", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("record", docMapping)
	im.DefaultType = "record"
	im.DefaultMapping = docMapping

	var idx bleve.Index
	var err error
	if cfg.path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		if err := os.RemoveAll(cfg.path); err != nil {
			return nil, fmt.Errorf("clear lookup index path: %w", err)
		}
		idx, err = bleve.New(cfg.path, im)
	}
	if err != nil {
		return nil, fmt.Errorf("create lookup index: %w", err)
	}

	names := make(map[string]string, len(docs))
	batch := idx.NewBatch()
	for _, doc := range docs {
		name := doc.Name()
		names[doc.ID] = name
		rec := indexedRecord{ID: doc.ID, Name: name, Text: doc.Text}
		if err := batch.Index(doc.ID, rec); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index record %q: %w", doc.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("index lookup batch: %w", err)
	}

	return &Index{
		idx:       idx,
		names:     names,
		fuzziness: cfg.fuzziness,
		suggester: NewSuggester(docs, cfg.fuzziness),
		logger:    cfg.logger,
	}, nil
}

// Search returns up to limit records matching q, best first. Name matches
// outrank text matches. When fuzzy is set, terms match within the configured
// edit distance.
func (l *Index) Search(ctx context.Context, q string, limit int, fuzzy bool) ([]*Result, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(l.buildQuery(q, fuzzy), limit, 0, false)
	res, err := l.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lookup search: %w", err)
	}
	out := make([]*Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &Result{ID: hit.ID, Name: l.names[hit.ID], Score: hit.Score}
	}
	return out, nil
}

// buildQuery matches q against name (boosted) and text. Fuzzy mode expands
// each term into a fuzzy disjunction, mirroring match-query OR semantics.
func (l *Index) buildQuery(q string, fuzzy bool) blevequery.Query {
	if !fuzzy {
		nameQuery := bleve.NewMatchQuery(q)
		nameQuery.SetField("name")
		nameQuery.SetBoost(3)
		textQuery := bleve.NewMatchQuery(q)
		textQuery.SetField("text")
		return bleve.NewDisjunctionQuery(nameQuery, textQuery)
	}
	terms := tokenize(q)
	if len(terms) == 0 {
		return bleve.NewMatchQuery(q)
	}
	queries := make([]blevequery.Query, 0, len(terms)*2)
	for _, term := range terms {
		nameQuery := bleve.NewFuzzyQuery(term)
		nameQuery.SetFuzziness(l.fuzziness)
		nameQuery.SetField("name")
		nameQuery.SetBoost(3)
		textQuery := bleve.NewFuzzyQuery(term)
		textQuery.SetFuzziness(l.fuzziness)
		textQuery.SetField("text")
		queries = append(queries, nameQuery, textQuery)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Suggest returns up to n spelling suggestions for term drawn from the
// record-name vocabulary.
func (l *Index) Suggest(term string, n int) []string {
	return l.suggester.Suggest(term, n)
}

// DocCount returns the number of indexed records.
func (l *Index) DocCount() uint64 {
	n, err := l.idx.DocCount()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("lookup doc count failed", zap.Error(err))
		}
		return 0
	}
	return n
}

// Close releases the underlying bleve index.
func (l *Index) Close() error {
	return l.idx.Close()
}
