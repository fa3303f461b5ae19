package store

import (
	"context"
	"strings"

	"github.com/rcliao/agent-recall/internal/model"
)

// ExportSession returns all memories for a session, including superseded
// and forgotten ones, ordered by creation time. An empty session id exports
// everything.
func (s *SQLiteStore) ExportSession(ctx context.Context, sessionID string) ([]model.StoredMemory, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if sessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, sessionID)
	}

	query := `SELECT id, session_id, content, memory_type, confidence, source_type,
	                 rationale, evidence, superseded_by, access_count, last_accessed_at, created_at
	          FROM memories WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at`

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

// Import persists memories from an export into their original sessions,
// preserving ids and timestamps. Returns the number imported.
func (s *SQLiteStore) Import(ctx context.Context, memories []model.StoredMemory) (int, error) {
	imported := 0
	for _, m := range memories {
		_, err := s.Persist(ctx, model.MemoryInput{
			ID:         m.ID,
			Content:    m.Content,
			Type:       m.Type,
			Confidence: m.Confidence,
			Source:     m.Source,
			SessionID:  m.SessionID,
			CreatedAt:  m.CreatedAt,
			Rationale:  m.Rationale,
			Evidence:   m.Evidence,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
