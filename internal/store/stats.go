package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath          string         `json:"db_path"`
	DBSizeBytes     int64          `json:"db_size_bytes"`
	TotalMemories   int            `json:"total_memories"`
	ActiveMemories  int            `json:"active_memories"`
	ForgottenCount  int            `json:"forgotten"`
	SupersededCount int            `json:"superseded"`
	TotalLinks      int            `json:"total_links"`
	Sessions        []SessionStats `json:"sessions"`
}

// SessionStats holds per-session counts.
type SessionStats struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
	Active    int    `json:"active"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.TotalMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE superseded_by IS NULL`).Scan(&st.ActiveMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE superseded_by = ?`, ForgottenMarker).Scan(&st.ForgottenCount)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE superseded_by IS NOT NULL AND superseded_by != ?`, ForgottenMarker).Scan(&st.SupersededCount)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_links`).Scan(&st.TotalLinks)

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*) AS cnt,
		       SUM(CASE WHEN superseded_by IS NULL THEN 1 ELSE 0 END) AS active
		FROM memories
		GROUP BY session_id ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ss SessionStats
		rows.Scan(&ss.SessionID, &ss.Count, &ss.Active)
		st.Sessions = append(st.Sessions, ss)
	}

	return st, rows.Err()
}
