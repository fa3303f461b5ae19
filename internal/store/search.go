package store

import (
	"context"

	"github.com/rcliao/agent-recall/internal/embedding"
	"github.com/rcliao/agent-recall/internal/model"
)

// searchCandidates bounds how many memories are pulled for ranking.
const searchCandidates = 200

// Search ranks a session's active memories against a free-text query using
// TF-IDF cosine similarity. Queries that tokenize to nothing return an
// ErrEmptyText from the embedding layer.
func (s *SQLiteStore) Search(ctx context.Context, sessionID, query string, limit int) ([]embedding.Ranked[model.StoredMemory], error) {
	queryEmb, err := embedding.Generate(query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.Query(ctx, sessionID, QueryParams{Limit: searchCandidates})
	if err != nil {
		return nil, err
	}

	ranked := embedding.RankBySimilarity(queryEmb, candidates,
		func(m model.StoredMemory) string { return m.Content },
		embedding.DefaultRankThreshold, limit)
	return ranked, nil
}
