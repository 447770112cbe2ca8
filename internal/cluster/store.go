package cluster

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
	"github.com/orieg/edu-policy-navigator-sub001/internal/vector"
)

// EmbeddingBlock holds one cluster's document embeddings as a single flat
// buffer: row i occupies Vectors[i*Dims : (i+1)*Dims]. The flat layout is an
// invariant, not an implementation detail — per-cluster scans stay
// cache-sequential because the buffer is contiguous, where a slice of
// per-document vectors would not be.
type EmbeddingBlock struct {
	ClusterID  string
	Vectors    []float32
	NumVectors int
	Dims       int
}

// Row returns the i-th document's vector as a subslice of the flat buffer.
// The caller must not hold it past the store's lifetime or mutate it.
func (b *EmbeddingBlock) Row(i int) []float32 {
	return b.Vectors[i*b.Dims : (i+1)*b.Dims]
}

// Record is the unit of storage per partition: the embedding block plus the
// parallel document metadata, where Docs[i] describes Row(i).
type Record struct {
	ClusterID string
	Block     EmbeddingBlock
	Docs      []*models.Document
}

// Store maps cluster IDs to validated, immutable cluster records. Every
// record is validated once, eagerly, at construction; after that reads need
// no synchronization.
type Store struct {
	dims    int
	records map[string]*Record
	byDocID map[string]*models.Document
	numDocs int
	logger  *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger attaches a logger for soft diagnostics (clamps, absent
// clusters, duplicate document IDs). Without one the store stays silent.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore validates and indexes the given cluster records. Any violation of
// the layout invariants — block dims != dims, metadata length != NumVectors,
// flat buffer length != NumVectors*Dims, nil document, duplicate cluster ID —
// fails the whole construction with *MalformedClusterError. An empty record
// set fails with ErrEmptyStore.
func NewStore(dims int, records []*Record, opts ...StoreOption) (*Store, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("cluster store: dimensions must be positive, got %d", dims)
	}
	if len(records) == 0 {
		return nil, ErrEmptyStore
	}
	s := &Store{
		dims:    dims,
		records: make(map[string]*Record, len(records)),
		byDocID: make(map[string]*models.Document),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, rec := range records {
		if rec == nil {
			return nil, &MalformedClusterError{ClusterID: "", Reason: "nil record"}
		}
		if err := validateRecord(dims, rec); err != nil {
			return nil, err
		}
		if _, exists := s.records[rec.ClusterID]; exists {
			return nil, &MalformedClusterError{ClusterID: rec.ClusterID, Reason: "duplicate cluster id"}
		}
		s.records[rec.ClusterID] = rec
		s.numDocs += rec.Block.NumVectors
		for _, doc := range rec.Docs {
			if prev, dup := s.byDocID[doc.ID]; dup {
				if s.logger != nil && prev != doc {
					s.logger.Warn("duplicate document id across clusters, keeping first",
						zap.String("document_id", doc.ID),
						zap.String("cluster_id", rec.ClusterID))
				}
				continue
			}
			s.byDocID[doc.ID] = doc
		}
	}
	return s, nil
}

func validateRecord(dims int, rec *Record) error {
	b := &rec.Block
	if b.ClusterID != rec.ClusterID {
		return &MalformedClusterError{ClusterID: rec.ClusterID,
			Reason: fmt.Sprintf("embedding block labeled %q", b.ClusterID)}
	}
	if b.NumVectors < 0 {
		return &MalformedClusterError{ClusterID: rec.ClusterID,
			Reason: fmt.Sprintf("negative vector count %d", b.NumVectors)}
	}
	if b.Dims != dims {
		return &MalformedClusterError{ClusterID: rec.ClusterID,
			Reason: fmt.Sprintf("block dimensions %d, store expects %d", b.Dims, dims)}
	}
	if len(rec.Docs) != b.NumVectors {
		return &MalformedClusterError{ClusterID: rec.ClusterID,
			Reason: fmt.Sprintf("%d documents for %d vectors", len(rec.Docs), b.NumVectors)}
	}
	if len(b.Vectors) != b.NumVectors*b.Dims {
		return &MalformedClusterError{ClusterID: rec.ClusterID,
			Reason: fmt.Sprintf("flat buffer holds %d floats, want %d (%d vectors x %d dims)",
				len(b.Vectors), b.NumVectors*b.Dims, b.NumVectors, b.Dims)}
	}
	for i, doc := range rec.Docs {
		if doc == nil {
			return &MalformedClusterError{ClusterID: rec.ClusterID,
				Reason: fmt.Sprintf("nil document at index %d", i)}
		}
	}
	return nil
}

// Dimensions returns the shared vector dimensionality D.
func (s *Store) Dimensions() int { return s.dims }

// NumClusters returns the number of cluster records held.
func (s *Store) NumClusters() int { return len(s.records) }

// NumDocuments returns the total document count across all clusters.
func (s *Store) NumDocuments() int { return s.numDocs }

// Get returns the record for clusterID. Absence is not an error at this
// layer; a stale cluster reference must not crash a query.
func (s *Store) Get(clusterID string) (*Record, bool) {
	rec, ok := s.records[clusterID]
	return rec, ok
}

// Document returns the document with the given ID, searching across all
// clusters. When the same ID appears in several clusters the first loaded
// wins.
func (s *Store) Document(id string) (*models.Document, bool) {
	doc, ok := s.byDocID[id]
	return doc, ok
}

// SearchCluster linearly scans one cluster's flat buffer against query and
// returns up to topK results, descending by score with scan order on exact
// ties. An absent cluster and an empty cluster both return nil results with
// no error. topK clamps like CentroidIndex.TopClusters.
//
// The scan is intentionally a plain loop with no secondary index: clusters
// are small relative to the corpus, and it is the centroid routing in stage 1
// that keeps total work sub-linear in corpus size.
func (s *Store) SearchCluster(query []float32, clusterID string, topK int) ([]*models.SearchResult, error) {
	if len(query) != s.dims {
		return nil, &vector.ErrDimensionMismatch{Expected: s.dims, Actual: len(query)}
	}
	rec, ok := s.records[clusterID]
	if !ok {
		if s.logger != nil {
			s.logger.Debug("cluster absent from store", zap.String("cluster_id", clusterID))
		}
		return nil, nil
	}
	n := rec.Block.NumVectors
	if n == 0 {
		return nil, nil
	}
	if topK <= 0 {
		if s.logger != nil {
			s.logger.Debug("per-cluster limit clamped",
				zap.String("cluster_id", clusterID), zap.Int("requested", topK), zap.Int("using", 1))
		}
		topK = 1
	}
	if topK > n {
		topK = n
	}
	results := make([]*models.SearchResult, n)
	for i := 0; i < n; i++ {
		score, _ := vector.Dot(query, rec.Block.Row(i))
		doc := rec.Docs[i]
		results[i] = &models.SearchResult{
			ID:       doc.ID,
			Text:     doc.Text,
			Score:    score,
			Document: doc,
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results[:topK], nil
}
