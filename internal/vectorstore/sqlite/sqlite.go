// Package sqlite implements the vector store on a single SQLite database.
// Ordinals are the row primary keys, so the positional link between a vector
// and its metadata survives in one table and appends are transactional.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// DatabaseFile is the database name inside the store directory.
const DatabaseFile = "vectors.db"

const schema = `
CREATE TABLE IF NOT EXISTS store_meta (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	dimension INTEGER NOT NULL,
	provider  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	ordinal     INTEGER PRIMARY KEY,
	chunk       TEXT NOT NULL,
	source_file TEXT NOT NULL,
	embedding   BLOB NOT NULL
);`

var _ vectorstore.Storage = (*Storage)(nil)

// Storage is a SQLite-backed store.
type Storage struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database in dir and checks its consistency.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	s := &Storage{db: db, path: dbPath}
	if _, err := s.Stats(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Storage) Path() string { return s.path }

func (s *Storage) Append(ctx context.Context, records []domain.ChunkRecord, vectors [][]float32, provider string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Claim the write lock before reading so concurrent appenders serialize here.
	if _, err := tx.ExecContext(ctx, `UPDATE store_meta SET id = id WHERE id = 1`); err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	head, count, err := readHead(ctx, tx)
	if err != nil {
		return err
	}
	dim, err := head.CheckAppend(records, vectors, provider)
	if err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}
	if head.Dimension == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO store_meta (id, dimension, provider) VALUES (1, ?, ?)`, dim, provider); err != nil {
			return fmt.Errorf("record store configuration: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (ordinal, chunk, source_file, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i := range records {
		if _, err := stmt.ExecContext(ctx, count+i, records[i].Text, records[i].SourceFile,
			vectorstore.EncodeVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", count+i, err)
		}
	}
	return tx.Commit()
}

func (s *Storage) Search(ctx context.Context, query []float32, k int, provider string) ([]domain.SearchResult, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Search(query, k, provider)
}

func (s *Storage) Stats(ctx context.Context) (vectorstore.Stats, error) {
	head, count, err := readHead(ctx, s.db)
	if err != nil {
		return vectorstore.Stats{}, err
	}
	return vectorstore.Stats{Count: count, Dimension: head.Dimension, Provider: head.Provider}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error { return s.db.Close() }

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// readHead returns the fixed configuration and the row count, verifying that
// ordinals are dense.
func readHead(ctx context.Context, q querier) (*vectorstore.Flat, int, error) {
	head := &vectorstore.Flat{}
	err := q.QueryRowContext(ctx, `SELECT dimension, provider FROM store_meta WHERE id = 1`).
		Scan(&head.Dimension, &head.Provider)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("read store configuration: %w", err)
	}
	var count int
	var maxOrdinal sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*), MAX(ordinal) FROM chunks`).Scan(&count, &maxOrdinal); err != nil {
		return nil, 0, fmt.Errorf("count chunks: %w", err)
	}
	if count > 0 && (head.Dimension == 0 || !maxOrdinal.Valid || maxOrdinal.Int64 != int64(count-1)) {
		return nil, 0, &domain.CorruptStoreError{Path: DatabaseFile, Reason: "chunk ordinals are not dense or configuration is missing"}
	}
	return head, count, nil
}

// load reads the whole store in one read transaction.
func (s *Storage) load(ctx context.Context) (*vectorstore.Flat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // nothing written

	state, count, err := readHead(ctx, tx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, `SELECT chunk, source_file, embedding FROM chunks ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	state.Vectors = make([][]float32, 0, count)
	state.Records = make([]domain.ChunkRecord, 0, count)
	for rows.Next() {
		var rec domain.ChunkRecord
		var blob []byte
		if err := rows.Scan(&rec.Text, &rec.SourceFile, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		vec, err := vectorstore.DecodeVector(blob)
		if err != nil || len(vec) != state.Dimension {
			return nil, &domain.CorruptStoreError{Path: s.path, Reason: fmt.Sprintf("embedding of chunk %d is malformed", len(state.Vectors))}
		}
		state.Vectors = append(state.Vectors, vec)
		state.Records = append(state.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return state, nil
}
