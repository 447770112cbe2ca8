package corpus

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/orieg/edu-policy-navigator-sub001/internal/cluster"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
)

// SQLite snapshot schema. Centroid positions preserve the manifest order so
// the tie-break order survives the import round trip.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS corpus_info (
	dimensions INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS centroids (
	position   INTEGER PRIMARY KEY,
	cluster_id TEXT NOT NULL UNIQUE,
	vector     BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS cluster_blocks (
	cluster_id  TEXT PRIMARY KEY,
	num_vectors INTEGER NOT NULL,
	vectors     BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	cluster_id TEXT NOT NULL,
	idx        INTEGER NOT NULL,
	id         TEXT NOT NULL,
	text       TEXT NOT NULL,
	attrs      TEXT,
	PRIMARY KEY (cluster_id, idx)
);
`

// loadSQLite reads a snapshot database produced by the importer.
func loadSQLite(path string) (*Corpus, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open corpus database: %w", err)
	}
	defer db.Close()

	c := &Corpus{Path: path, Format: FormatSQLite}
	if err := db.QueryRow(`SELECT dimensions FROM corpus_info`).Scan(&c.Dimensions); err != nil {
		return nil, fmt.Errorf("read corpus info: %w", err)
	}

	rows, err := db.Query(`SELECT cluster_id, vector FROM centroids ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("read centroids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan centroid: %w", err)
		}
		c.Centroids = append(c.Centroids, cluster.Centroid{
			ClusterID: id,
			Vector:    bytesToFloat32Slice(blob),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read centroids: %w", err)
	}

	for _, cent := range c.Centroids {
		rec, err := loadSQLiteCluster(db, cent.ClusterID, c.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("cluster %q: %w", cent.ClusterID, err)
		}
		c.Records = append(c.Records, rec)
	}
	return c, nil
}

func loadSQLiteCluster(db *sql.DB, clusterID string, dims int) (*cluster.Record, error) {
	var numVectors int
	var blob []byte
	err := db.QueryRow(
		`SELECT num_vectors, vectors FROM cluster_blocks WHERE cluster_id = ?`,
		clusterID,
	).Scan(&numVectors, &blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no embedding block in snapshot")
	}
	if err != nil {
		return nil, fmt.Errorf("read embedding block: %w", err)
	}

	rows, err := db.Query(
		`SELECT id, text, attrs FROM documents WHERE cluster_id = ? ORDER BY idx`,
		clusterID,
	)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	defer rows.Close()
	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var attrsJSON sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Text, &attrsJSON); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if attrsJSON.Valid && attrsJSON.String != "" {
			if err := json.Unmarshal([]byte(attrsJSON.String), &doc.Attrs); err != nil {
				return nil, fmt.Errorf("document %q attrs: %w", doc.ID, err)
			}
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	return &cluster.Record{
		ClusterID: clusterID,
		Block: cluster.EmbeddingBlock{
			ClusterID:  clusterID,
			Vectors:    bytesToFloat32Slice(blob),
			NumVectors: numVectors,
			Dims:       dims,
		},
		Docs: docs,
	}, nil
}
