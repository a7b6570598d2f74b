// Package sqlite persists index snapshots with modernc.org/sqlite.
//
// The store keeps exactly one snapshot per database file: the vectors,
// chunk texts and source metadata of the last successful build. Loading
// reconstructs search input bit-for-bit (little-endian float32 blobs,
// insertion order preserved), so a restored index returns the same
// results as the index it was saved from, without re-embedding.
//
// modernc.org/sqlite is a pure Go SQLite build, so the binary
// cross-compiles without CGO.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.SnapshotStore = (*Store)(nil)

// Store is a SQLite-backed snapshot store.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	model TEXT NOT NULL,
	dimensions INTEGER NOT NULL,
	documents INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_chunks (
	position INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	content TEXT NOT NULL,
	source_path TEXT NOT NULL,
	page_number INTEGER,
	chunk_index INTEGER NOT NULL,
	embedding BLOB NOT NULL
);
`

// NewStore opens (or creates) the snapshot database at dataDir.
// If dataDir is empty, defaults to ~/.askdoc/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".askdoc", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode for better concurrency between save and load.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save atomically replaces the stored snapshot inside one transaction.
func (s *Store) Save(ctx context.Context, snap domain.IndexSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_meta"); err != nil {
		return fmt.Errorf("clearing meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, model, dimensions, documents, created_at)
		VALUES (1, ?, ?, ?, ?)
	`, snap.Model, snap.Dimensions, snap.Documents, snap.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("saving meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_chunks
			(position, id, document_id, content, source_path, page_number, chunk_index, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range snap.Chunks {
		var page sql.NullInt64
		if chunk.PageNumber != nil {
			page = sql.NullInt64{Int64: int64(*chunk.PageNumber), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, i, chunk.ID, chunk.DocumentID, chunk.Text,
			chunk.SourcePath, page, chunk.ChunkIndex, float32SliceToBytes(chunk.Embedding)); err != nil {
			return fmt.Errorf("saving chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or domain.ErrNotFound when the
// database holds none.
func (s *Store) Load(ctx context.Context) (*domain.IndexSnapshot, error) {
	var snap domain.IndexSnapshot

	row := s.db.QueryRowContext(ctx,
		"SELECT model, dimensions, documents, created_at FROM snapshot_meta WHERE id = 1")
	var createdAt time.Time
	if err := row.Scan(&snap.Model, &snap.Dimensions, &snap.Documents, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading meta: %w", err)
	}
	snap.CreatedAt = createdAt

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, source_path, page_number, chunk_index, embedding
		FROM snapshot_chunks ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunk domain.Chunk
		var page sql.NullInt64
		var blob []byte

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text,
			&chunk.SourcePath, &page, &chunk.ChunkIndex, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if page.Valid {
			p := int(page.Int64)
			chunk.PageNumber = &p
		}
		chunk.Embedding = bytesToFloat32Slice(blob)

		snap.Chunks = append(snap.Chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return &snap, nil
}

// Delete removes the stored snapshot. An already-empty database is fine.
func (s *Store) Delete(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_meta"); err != nil {
		return fmt.Errorf("clearing meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// float32SliceToBytes converts a []float32 to a little-endian byte blob.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte blob back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
