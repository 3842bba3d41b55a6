package retrieval

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cob-labs/carebot/internal/knowledge"
)

// SQLiteIndex persists passages and embeddings in a local SQLite file, so
// the corpus survives restarts without re-chunking and re-embedding. Queries
// scan all rows and score in-process; fine at knowledge-base scale.
type SQLiteIndex struct {
	db *sql.DB
}

func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS passages (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		body TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		embedding BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite index schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

func (s *SQLiteIndex) Upsert(ctx context.Context, p knowledge.Passage, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO passages (id, source, title, category, body, tags, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   source=excluded.source, title=excluded.title, category=excluded.category,
		   body=excluded.body, tags=excluded.tags, embedding=excluded.embedding`,
		p.ID, p.Source, p.Title, p.Category, p.Text, strings.Join(p.Tags, ","), encodeVector(vec),
	)
	if err != nil {
		return fmt.Errorf("upsert passage %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteIndex) Query(ctx context.Context, vec []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM passages`)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan passage row: %w", err)
		}
		hits = append(hits, Hit{PassageID: id, Score: dot(vec, decodeVector(blob))})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passage rows: %w", err)
	}

	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *SQLiteIndex) Passage(ctx context.Context, id string) (knowledge.Passage, error) {
	var p knowledge.Passage
	var tags string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, title, category, body, tags FROM passages WHERE id = ?`, id,
	).Scan(&p.ID, &p.Source, &p.Title, &p.Category, &p.Text, &tags)
	if errors.Is(err, sql.ErrNoRows) {
		return knowledge.Passage{}, ErrPassageNotFound
	}
	if err != nil {
		return knowledge.Passage{}, fmt.Errorf("load passage %s: %w", id, err)
	}
	if tags != "" {
		p.Tags = strings.Split(tags, ",")
	}
	return p, nil
}

// Count reports how many passages are indexed, used to skip reindexing on
// startup when the corpus is already present.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

func (s *SQLiteIndex) Close() error { return s.db.Close() }

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
