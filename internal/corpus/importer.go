package corpus

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

// Import converts a JSON corpus directory into a single SQLite snapshot at
// outPath, validating the corpus as it reads. Documents without an ID are
// assigned a fresh UUID so every record is addressable by the detail
// endpoint. logger may be nil. Returns the number of documents written.
func Import(jsonDir, outPath string, logger *zap.Logger) (int, error) {
	c, err := Load(jsonDir, logger)
	if err != nil {
		return 0, fmt.Errorf("load source corpus: %w", err)
	}
	if c.Format != FormatJSON {
		return 0, fmt.Errorf("import source must be a JSON corpus directory, got %s", c.Format)
	}

	assigned := 0
	for _, rec := range c.Records {
		for _, doc := range rec.Docs {
			if doc.ID == "" {
				doc.ID = uuid.NewString()
				assigned++
			}
		}
	}
	if assigned > 0 && logger != nil {
		logger.Info("assigned ids to documents without one", zap.Int("count", assigned))
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	// A fresh snapshot, never an in-place update.
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("remove old snapshot: %w", err)
	}

	db, err := sql.Open("sqlite3", outPath)
	if err != nil {
		return 0, fmt.Errorf("create snapshot database: %w", err)
	}
	defer db.Close()
	if _, err := db.Exec(sqliteSchema); err != nil {
		return 0, fmt.Errorf("initialize snapshot schema: %w", err)
	}

	written, err := writeSnapshot(db, c)
	if err != nil {
		return 0, err
	}
	if logger != nil {
		logger.Info("corpus snapshot written",
			zap.String("path", outPath),
			zap.Int("clusters", len(c.Records)),
			zap.Int("documents", written))
	}
	return written, nil
}

func writeSnapshot(db *sql.DB, c *Corpus) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO corpus_info (dimensions) VALUES (?)`, c.Dimensions); err != nil {
		return 0, fmt.Errorf("write corpus info: %w", err)
	}
	for pos, cent := range c.Centroids {
		_, err := tx.Exec(
			`INSERT INTO centroids (position, cluster_id, vector) VALUES (?, ?, ?)`,
			pos, cent.ClusterID, float32SliceToBytes(cent.Vector),
		)
		if err != nil {
			return 0, fmt.Errorf("write centroid %q: %w", cent.ClusterID, err)
		}
	}

	docStmt, err := tx.Prepare(
		`INSERT INTO documents (cluster_id, idx, id, text, attrs) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer docStmt.Close()

	written := 0
	for _, rec := range c.Records {
		_, err := tx.Exec(
			`INSERT INTO cluster_blocks (cluster_id, num_vectors, vectors) VALUES (?, ?, ?)`,
			rec.ClusterID, rec.Block.NumVectors, float32SliceToBytes(rec.Block.Vectors),
		)
		if err != nil {
			return 0, fmt.Errorf("write block %q: %w", rec.ClusterID, err)
		}
		for i, doc := range rec.Docs {
			var attrsJSON string
			if len(doc.Attrs) > 0 {
				data, err := json.Marshal(doc.Attrs)
				if err != nil {
					return 0, fmt.Errorf("document %q attrs: %w", doc.ID, err)
				}
				attrsJSON = string(data)
			}
			if _, err := docStmt.Exec(rec.ClusterID, i, doc.ID, doc.Text, attrsJSON); err != nil {
				return 0, fmt.Errorf("write document %q: %w", doc.ID, err)
			}
			written++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}
