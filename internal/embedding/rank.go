package embedding

import "sort"

// DefaultRankThreshold is the minimum similarity for an item to rank.
const DefaultRankThreshold = 0.1

// Ranked pairs an item with its similarity score.
type Ranked[T any] struct {
	Item  T
	Score float64
}

// RankBySimilarity embeds each item's extracted content, keeps items with
// score >= threshold, and returns them sorted descending by score. Ties keep
// their original order (stable sort). A limit <= 0 means unlimited. Items
// whose content yields no tokens are skipped.
func RankBySimilarity[T any](query Embedding, items []T, content func(T) string, threshold float64, limit int) []Ranked[T] {
	var ranked []Ranked[T]
	for _, item := range items {
		emb := GenerateOrEmpty(content(item))
		score := CosineSimilarity(query, emb)
		if score >= threshold {
			ranked = append(ranked, Ranked[T]{Item: item, Score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
