// Package store is the content-addressed completion cache.
//
// Every chat-completion call is keyed by a SHA-256 of the model tag, both
// prompts, and the token budget. Entries are write-once and never
// auto-invalidated: identical prompts must yield identical output for the
// lifetime of the cache, and a cache hit skips the network entirely.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS completions (
		key TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		user_prompt TEXT NOT NULL,
		completion TEXT NOT NULL,
		usage_count INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_completions_model ON completions(model);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Key derives the cache key for one completion call. An empty model is
// keyed as "auto" so that race-dispatched calls share entries regardless
// of which candidate happened to win. Prompts are NFC-normalized so that
// visually identical prompts hash identically.
func Key(model, systemPrompt, userPrompt string, maxTokens int) string {
	if model == "" {
		model = "auto"
	}
	payload, _ := json.Marshal(struct {
		M string `json:"m"`
		S string `json:"s"`
		U string `json:"u"`
		T int    `json:"t"`
	}{
		M: model,
		S: normalizeText(systemPrompt),
		U: normalizeText(userPrompt),
		T: maxTokens,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached completion for key, if any, bumping its usage
// counter on a hit.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var completion string
	err := s.db.QueryRowContext(ctx,
		`SELECT completion FROM completions WHERE key = ?`, key).Scan(&completion)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE completions SET usage_count = usage_count + 1, last_used = ? WHERE key = ?`,
		time.Now(), key)
	return completion, true, err
}

// Put stores a completion under key. Entries are write-once: a second Put
// for the same key is a no-op, so concurrent writers racing on one key are
// benign.
func (s *Store) Put(ctx context.Context, key, model, userPrompt, completion string) error {
	if model == "" {
		model = "auto"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO completions (key, model, user_prompt, completion) VALUES (?, ?, ?, ?)`,
		key, model, userPrompt, completion)
	return err
}

// Entry is a row from the completions table.
type Entry struct {
	Key        string
	Model      string
	UserPrompt string
	Completion string
	UsageCount int
	CreatedAt  time.Time
	LastUsed   time.Time
}

// Stats summarises completion cache usage.
type Stats struct {
	TotalEntries int
	TotalHits    int
	Models       int
}

// List returns all cache entries ordered by most recently used.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, model, user_prompt, completion, usage_count, created_at, last_used
		 FROM completions ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Model, &e.UserPrompt, &e.Completion, &e.UsageCount, &e.CreatedAt, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// CacheStats returns summary statistics for the completion cache.
func (s *Store) CacheStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(usage_count), 0),
			COUNT(DISTINCT model)
		FROM completions`).Scan(
		&stats.TotalEntries,
		&stats.TotalHits,
		&stats.Models,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Delete permanently removes a cache entry by key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM completions WHERE key = ?`, key)
	return err
}

// Clear removes all cache entries.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM completions`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent cache key derivation.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
