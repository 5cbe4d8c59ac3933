package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// FileName is the vector database file inside the base directory.
const FileName = "vectors.db"

// Metric is the distance metric the index is created with. Query scores are
// derived from it, so ingestion and search can never disagree on the metric.
const Metric = "cosine"

// MaxK is the largest neighbour count vec0 accepts in one KNN query.
const MaxK = 4096

// Match is one nearest-neighbour hit.
type Match struct {
	ID string
	// Score is the cosine similarity mapped to [0,1]: 1 - distance/2.
	Score float64
}

// Index is the vector index: one embedding per bookmark ID in a sqlite-vec
// vec0 table. It is a separate database from the metadata store.
type Index struct {
	db         *sql.DB
	dimensions int
}

// Open opens (or creates) the index at path with a fixed dimension.
// Opening an existing index with a different dimension or metric fails.
func Open(path string, dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimensions)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening vector db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging vector db: %w", err)
	}

	if err := migrate(db, dimensions); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating vector tables: %w", err)
	}

	return &Index{db: db, dimensions: dimensions}, nil
}

func migrate(db *sql.DB, dimensions int) error {
	const metaDDL = `
CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`
	if _, err := db.Exec(metaDDL); err != nil {
		return fmt.Errorf("creating index_meta table: %w", err)
	}

	stored, err := readMeta(db, "dimensions")
	if err != nil {
		return err
	}
	if stored != "" && stored != strconv.Itoa(dimensions) {
		return fmt.Errorf("index was created with %s dimensions, configured %d; re-create the index to change models", stored, dimensions)
	}
	metric, err := readMeta(db, "metric")
	if err != nil {
		return err
	}
	if metric != "" && metric != Metric {
		return fmt.Errorf("index was created with metric %q, expected %q", metric, Metric)
	}

	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=%s)`,
		dimensions, Metric,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating vectors virtual table: %w", err)
	}

	const upsertMeta = `INSERT INTO index_meta(key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := db.Exec(upsertMeta, "dimensions", strconv.Itoa(dimensions)); err != nil {
		return fmt.Errorf("recording dimensions: %w", err)
	}
	if _, err := db.Exec(upsertMeta, "metric", Metric); err != nil {
		return fmt.Errorf("recording metric: %w", err)
	}
	return nil
}

func readMeta(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM index_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading index_meta %s: %w", key, err)
	}
	return value, nil
}

// Dimension returns the fixed vector size.
func (x *Index) Dimension() int {
	return x.dimensions
}

// Upsert inserts or replaces the embedding for id.
func (x *Index) Upsert(ctx context.Context, id string, embedding []float32) error {
	if len(embedding) != x.dimensions {
		return fmt.Errorf("embedding has %d dimensions, index expects %d", len(embedding), x.dimensions)
	}
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return fmt.Errorf("serializing embedding: %w", err)
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting existing vector %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO vectors(id, embedding) VALUES (?, ?)`, id, blob); err != nil {
		return fmt.Errorf("inserting vector %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vector upsert: %w", err)
	}
	return nil
}

// Get returns the stored embedding for id, or nil if there is none.
func (x *Index) Get(ctx context.Context, id string) ([]float32, error) {
	var blob []byte
	err := x.db.QueryRowContext(ctx, `SELECT embedding FROM vectors WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading vector %s: %w", id, err)
	}

	embedding, err := deserializeFloat32(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding vector %s: %w", id, err)
	}
	return embedding, nil
}

// deserializeFloat32 reverses sqlite_vec.SerializeFloat32: little-endian
// float32s, four bytes each.
func deserializeFloat32(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

// Delete removes the embedding for id. Deleting an absent id is not an error.
func (x *Index) Delete(ctx context.Context, id string) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting vector %s: %w", id, err)
	}
	return nil
}

// Query returns up to k nearest neighbours of query, most similar first.
// k is capped at MaxK.
func (x *Index) Query(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	k = min(k, MaxK)
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query has %d dimensions, index expects %d", len(query), x.dimensions)
	}
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serializing query vector: %w", err)
	}

	const q = `SELECT id, distance
FROM vectors
WHERE embedding MATCH ? AND k = ?
ORDER BY distance`

	rows, err := x.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]Match, 0, k)
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, fmt.Errorf("scanning vector result: %w", err)
		}
		results = append(results, Match{ID: id, Score: Similarity(distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector results: %w", err)
	}

	return results, nil
}

// IDs returns every id in the index.
func (x *Index) IDs(ctx context.Context) ([]string, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT id FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("listing vector ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning vector id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector ids: %w", err)
	}
	return ids, nil
}

// Count returns the number of stored embeddings.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// Similarity maps a cosine distance in [0,2] to a score in [0,1].
// It is strictly decreasing in distance, so ordering is preserved.
func Similarity(distance float64) float64 {
	s := 1 - distance/2
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
