package store

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteStore persists files, the two semantic index tiers (file summaries
// and code chunks), and the incremental-layer caches, backed by SQLite +
// sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the database at path and initializes the schema.
func Open(path string, dimension int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db, dimension); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetFileHash returns the stored content hash for a path, or "" if the file
// has not been indexed.
func (s *SQLiteStore) GetFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT hash FROM files WHERE path = ?", path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// ReplaceFile upserts the file record and replaces its previously indexed
// summary and chunks in one transaction. Re-indexing a changed file must
// replace, not append, so stale documents never accumulate.
func (s *SQLiteStore) ReplaceFile(ctx context.Context, file FileRecord, summaryText string, summaryVec []float32, chunks []ChunkRow, chunkVecs [][]float32) error {
	if len(chunks) != len(chunkVecs) {
		return fmt.Errorf("mismatched chunks (%d) and embeddings (%d)", len(chunks), len(chunkVecs))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fileID, err := upsertFile(ctx, tx, file)
	if err != nil {
		return err
	}
	if err := deleteFileDocs(ctx, tx, fileID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "INSERT INTO summaries (file_id, text) VALUES (?, ?)", fileID, summaryText)
	if err != nil {
		return err
	}
	summaryID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	blob, err := sqlite_vec.SerializeFloat32(summaryVec)
	if err != nil {
		return fmt.Errorf("serialize summary embedding for %s: %w", file.Path, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO vec_summaries (summary_id, embedding) VALUES (?, ?)", summaryID, blob); err != nil {
		return err
	}

	chunkStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (file_id, name, chunk_type, start_line, end_line, content) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer chunkStmt.Close()
	vecStmt, err := tx.PrepareContext(ctx, "INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, c := range chunks {
		res, err := chunkStmt.ExecContext(ctx, fileID, c.Name, c.ChunkType, c.StartLine, c.EndLine, c.Content)
		if err != nil {
			return err
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		blob, err := sqlite_vec.SerializeFloat32(chunkVecs[i])
		if err != nil {
			return fmt.Errorf("serialize chunk embedding for %s: %w", file.Path, err)
		}
		if _, err := vecStmt.ExecContext(ctx, chunkID, blob); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file and all of its indexed documents.
func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM files WHERE path = ?", path).Scan(&fileID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if err := deleteFileDocs(ctx, tx, fileID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertFile(ctx context.Context, tx *sql.Tx, file FileRecord) (int64, error) {
	var fileID int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM files WHERE path = ?", file.Path).Scan(&fileID)
	if err == nil {
		_, err = tx.ExecContext(ctx,
			"UPDATE files SET hash = ?, language = ?, indexed_at = CURRENT_TIMESTAMP WHERE id = ?",
			file.Hash, file.Language, fileID)
		return fileID, err
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, "INSERT INTO files (path, hash, language) VALUES (?, ?, ?)",
		file.Path, file.Hash, file.Language)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func deleteFileDocs(ctx context.Context, tx *sql.Tx, fileID int64) error {
	for _, q := range []struct{ sel, del string }{
		{"SELECT id FROM summaries WHERE file_id = ?", "DELETE FROM vec_summaries WHERE summary_id = ?"},
		{"SELECT id FROM chunks WHERE file_id = ?", "DELETE FROM vec_chunks WHERE chunk_id = ?"},
	} {
		rows, err := tx.QueryContext(ctx, q.sel, fileID)
		if err != nil {
			return err
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, q.del, id); err != nil {
				return err
			}
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM summaries WHERE file_id = ?", fileID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID)
	return err
}

// SearchSummaries finds the topK file summaries closest to the query vector.
func (s *SQLiteStore) SearchSummaries(ctx context.Context, queryVec []float32, topK int) ([]SummaryResult, error) {
	blob, err := sqlite_vec.SerializeFloat32(queryVec)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.summary_id, v.distance, sm.text, f.path
		FROM vec_summaries v
		JOIN summaries sm ON sm.id = v.summary_id
		JOIN files f ON f.id = sm.file_id
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance
	`, blob, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SummaryResult
	for rows.Next() {
		var r SummaryResult
		if err := rows.Scan(&r.Summary.ID, &r.Distance, &r.Summary.Text, &r.Summary.FilePath); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SearchChunks finds the topK chunks closest to the query vector. When
// fileFilter is non-empty, only chunks from those files are considered.
func (s *SQLiteStore) SearchChunks(ctx context.Context, queryVec []float32, topK int, fileFilter []string) ([]ChunkResult, error) {
	blob, err := sqlite_vec.SerializeFloat32(queryVec)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	// The KNN runs unfiltered; the file filter is applied afterward, so a
	// filtered search over-fetches to keep up to topK survivors.
	fetch := topK
	filter := make(map[string]bool, len(fileFilter))
	if len(fileFilter) > 0 {
		fetch = topK * 8
		for _, p := range fileFilter {
			filter[p] = true
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance, c.name, c.chunk_type, c.start_line, c.end_line, c.content, f.path
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN files f ON f.id = c.file_id
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance
	`, blob, fetch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ChunkResult
	for rows.Next() {
		var r ChunkResult
		if err := rows.Scan(&r.Chunk.ID, &r.Distance, &r.Chunk.Name, &r.Chunk.ChunkType,
			&r.Chunk.StartLine, &r.Chunk.EndLine, &r.Chunk.Content, &r.Chunk.FilePath); err != nil {
			return nil, err
		}
		if len(filter) > 0 && !filter[r.Chunk.FilePath] {
			continue
		}
		if len(results) >= topK {
			break
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SummariesForFile returns the stored summaries for exactly one file.
func (s *SQLiteStore) SummariesForFile(ctx context.Context, path string) ([]SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sm.id, sm.text, f.path
		FROM summaries sm JOIN files f ON f.id = sm.file_id
		WHERE f.path = ?
	`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.ID, &r.Text, &r.FilePath); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ChunksForFile returns the stored chunks for exactly one file.
func (s *SQLiteStore) ChunksForFile(ctx context.Context, path string) ([]ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.chunk_type, c.start_line, c.end_line, c.content, f.path
		FROM chunks c JOIN files f ON f.id = c.file_id
		WHERE f.path = ?
		ORDER BY c.start_line
	`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		if err := rows.Scan(&r.ID, &r.Name, &r.ChunkType, &r.StartLine, &r.EndLine, &r.Content, &r.FilePath); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- incremental-layer caches ---

// GetChunkSummary returns the cached summary for a content hash, or
// ("", false) on a miss.
func (s *SQLiteStore) GetChunkSummary(ctx context.Context, contentHash string) (string, bool, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, "SELECT summary FROM chunk_summaries WHERE content_hash = ?", contentHash).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return summary, true, nil
}

// PutChunkSummary caches a summary keyed by content hash.
func (s *SQLiteStore) PutChunkSummary(ctx context.Context, contentHash, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunk_summaries (content_hash, summary) VALUES (?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET summary = excluded.summary
	`, contentHash, summary)
	return err
}

// GetNodeHash returns the stored content hash for a graph node.
func (s *SQLiteStore) GetNodeHash(ctx context.Context, nodeID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT content_hash FROM node_hashes WHERE node_id = ?", nodeID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// PutNodeHash stores a graph node's content hash.
func (s *SQLiteStore) PutNodeHash(ctx context.Context, nodeID, hash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node_hashes (node_id, content_hash) VALUES (?, ?)
		ON CONFLICT(node_id) DO UPDATE SET content_hash = excluded.content_hash
	`, nodeID, hash)
	return err
}

// ReplaceNodeEdges replaces all cached edges touching nodeID.
func (s *SQLiteStore) ReplaceNodeEdges(ctx context.Context, nodeID string, edges []EdgeRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM graph_edges WHERE node_a = ? OR node_b = ?", nodeID, nodeID); err != nil {
		return err
	}
	for _, e := range edges {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO graph_edges (node_a, node_b, similarity) VALUES (?, ?, ?)
			ON CONFLICT(node_a, node_b) DO UPDATE SET similarity = excluded.similarity
		`, e.NodeA, e.NodeB, e.Similarity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// EdgesForNode returns the cached edges touching nodeID.
func (s *SQLiteStore) EdgesForNode(ctx context.Context, nodeID string) ([]EdgeRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT node_a, node_b, similarity FROM graph_edges WHERE node_a = ? OR node_b = ?", nodeID, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EdgeRow
	for rows.Next() {
		var e EdgeRow
		if err := rows.Scan(&e.NodeA, &e.NodeB, &e.Similarity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetMeta returns a metadata value by key, or "" if not set.
func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMeta sets a metadata key-value pair.
func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// IndexedFiles returns the paths of every indexed file.
func (s *SQLiteStore) IndexedFiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
