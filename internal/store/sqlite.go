package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/agent-recall/internal/model"
)

// DefaultSessionCap is the per-session memory cap enforced by Persist.
const DefaultSessionCap = 1000

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db         *sql.DB
	entropy    *rand.Rand
	sessionCap int
	logger     *slog.Logger
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:         db,
		entropy:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sessionCap: DefaultSessionCap,
		logger:     slog.Default(),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// SetSessionCap overrides the per-session memory cap. A cap <= 0 disables
// the check.
func (s *SQLiteStore) SetSessionCap(n int) {
	s.sessionCap = n
}

// SetLogger overrides the logger used for best-effort failures.
func (s *SQLiteStore) SetLogger(l *slog.Logger) {
	s.logger = l
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id               TEXT PRIMARY KEY,
		session_id       TEXT NOT NULL,
		content          TEXT NOT NULL,
		memory_type      TEXT NOT NULL,
		confidence       REAL NOT NULL,
		source_type      TEXT NOT NULL,
		rationale        TEXT,
		evidence         TEXT,
		superseded_by    TEXT,
		access_count     INTEGER NOT NULL DEFAULT 0,
		last_accessed_at TEXT,
		created_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id);
	CREATE INDEX IF NOT EXISTS idx_memories_session_type ON memories(session_id, memory_type);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_superseded ON memories(superseded_by);

	CREATE TABLE IF NOT EXISTS memory_links (
		from_id    TEXT NOT NULL REFERENCES memories(id),
		to_id      TEXT NOT NULL REFERENCES memories(id),
		rel        TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id, rel)
	);
	CREATE INDEX IF NOT EXISTS idx_links_to ON memory_links(to_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Persist(ctx context.Context, in model.MemoryInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	if in.SessionID == "" {
		return "", fmt.Errorf("invalid memory: empty session id")
	}

	if s.sessionCap > 0 {
		n, err := s.Count(ctx, in.SessionID, false)
		if err != nil {
			// fail open: a counting failure must not block persistence
			s.logger.Warn("capacity count failed, persisting anyway",
				"session", in.SessionID, "error", err)
		} else if n >= s.sessionCap {
			return "", fmt.Errorf("session %s has %d memories: %w", in.SessionID, n, ErrSessionCapacity)
		}
	}

	id := in.ID
	if id == "" {
		id = s.newID()
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var rationale *string
	if in.Rationale != "" {
		rationale = &in.Rationale
	}
	var evidenceJSON *string
	if len(in.Evidence) > 0 {
		b, _ := json.Marshal(in.Evidence)
		v := string(b)
		evidenceJSON = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, session_id, content, memory_type, confidence, source_type, rationale, evidence, access_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		id, in.SessionID, in.Content, string(in.Type), in.Confidence, string(in.Source),
		rationale, evidenceJSON, createdAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert memory: %w", err)
	}

	return id, nil
}

func (s *SQLiteStore) Query(ctx context.Context, sessionID string, p QueryParams) ([]model.StoredMemory, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"session_id = ?"}
	args := []interface{}{sessionID}

	if !p.IncludeSuperseded {
		where = append(where, "superseded_by IS NULL")
	}
	if p.Type != "" {
		where = append(where, "memory_type = ?")
		args = append(args, string(p.Type))
	}
	if p.MinConfidence > 0 {
		where = append(where, "confidence >= ?")
		args = append(args, p.MinConfidence)
	}

	query := fmt.Sprintf(`
		SELECT id, session_id, content, memory_type, confidence, source_type,
		       rationale, evidence, superseded_by, access_count, last_accessed_at, created_at
		FROM memories
		WHERE %s
		ORDER BY created_at DESC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.StoredMemory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID, memoryID string) (*model.StoredMemory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, content, memory_type, confidence, source_type,
		        rationale, evidence, superseded_by, access_count, last_accessed_at, created_at
		 FROM memories WHERE id = ? AND session_id = ?`, memoryID, sessionID)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", memoryID, ErrMemoryNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) Supersede(ctx context.Context, sessionID, oldID, newID string) error {
	marker := newID
	if marker == "" {
		marker = ForgottenMarker
	} else {
		// the successor must exist in the same session
		if _, err := s.Get(ctx, sessionID, newID); err != nil {
			return fmt.Errorf("supersede: successor %s: %w", newID, err)
		}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET superseded_by = ? WHERE id = ? AND session_id = ?`,
		marker, oldID, sessionID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("supersede %s: %w", oldID, ErrMemoryNotFound)
	}
	return nil
}

func (s *SQLiteStore) Forget(ctx context.Context, sessionID, memoryID string) error {
	return s.Supersede(ctx, sessionID, memoryID, "")
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID, memoryID string) error {
	if _, err := s.Get(ctx, sessionID, memoryID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_links WHERE from_id = ? OR to_id = ?`, memoryID, memoryID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM memories WHERE id = ? AND session_id = ?`, memoryID, sessionID)
	return err
}

func (s *SQLiteStore) RecordAccess(ctx context.Context, sessionID, memoryID string) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1, last_accessed_at = ?
		 WHERE id = ? AND session_id = ?`, now, memoryID, sessionID)
	if err != nil {
		s.logger.Debug("record access failed", "memory", memoryID, "error", err)
	}
}

func (s *SQLiteStore) Count(ctx context.Context, sessionID string, includeSuperseded bool) (int, error) {
	query := `SELECT COUNT(*) FROM memories WHERE session_id = ?`
	if !includeSuperseded {
		query += ` AND superseded_by IS NULL`
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) Link(ctx context.Context, sessionID, fromID, toID string, rel model.Relationship) error {
	if !model.ValidRelationships[rel] {
		return fmt.Errorf("invalid relationship %q", rel)
	}
	if _, err := s.Get(ctx, sessionID, fromID); err != nil {
		return fmt.Errorf("link from: %w", err)
	}
	if _, err := s.Get(ctx, sessionID, toID); err != nil {
		return fmt.Errorf("link to: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO memory_links (from_id, to_id, rel, created_at) VALUES (?, ?, ?, ?)`,
		fromID, toID, string(rel), now)
	return err
}

func (s *SQLiteStore) QueryRelated(ctx context.Context, sessionID, memoryID string, rel model.Relationship) ([]model.StoredMemory, error) {
	if !model.ValidRelationships[rel] {
		return nil, fmt.Errorf("invalid relationship %q", rel)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.session_id, m.content, m.memory_type, m.confidence, m.source_type,
		       m.rationale, m.evidence, m.superseded_by, m.access_count, m.last_accessed_at, m.created_at
		FROM memories m
		INNER JOIN memory_links l
			ON (l.from_id = ? AND l.to_id = m.id) OR (l.to_id = ? AND l.from_id = m.id)
		WHERE l.rel = ? AND m.session_id = ?
		ORDER BY m.created_at DESC`,
		memoryID, memoryID, string(rel), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.StoredMemory
	seen := map[string]bool{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.StoredMemory, error) {
	var m model.StoredMemory
	var memType, sourceType, createdAt string
	var rationale, evidenceJSON, supersededBy, lastAccessed sql.NullString

	err := row.Scan(
		&m.ID, &m.SessionID, &m.Content, &memType, &m.Confidence, &sourceType,
		&rationale, &evidenceJSON, &supersededBy, &m.AccessCount, &lastAccessed, &createdAt,
	)
	if err != nil {
		return m, err
	}

	m.Type = model.NormalizeMemoryType(model.MemoryType(memType))
	m.Source = model.SourceType(sourceType)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if rationale.Valid {
		m.Rationale = rationale.String
	}
	if evidenceJSON.Valid {
		json.Unmarshal([]byte(evidenceJSON.String), &m.Evidence)
	}
	if supersededBy.Valid {
		m.SupersededBy = supersededBy.String
	}
	if lastAccessed.Valid {
		t, _ := time.Parse(time.RFC3339, lastAccessed.String)
		m.LastAccessedAt = &t
	}

	return m, nil
}
