package index

import "sort"

// TermStat is a term's total occurrence count across the corpus and its
// share of all indexed occurrences, in percent.
type TermStat struct {
	Term    string  `json:"term"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// TopTerms returns the n most frequent terms, most frequent first, ties
// broken by term. n <= 0 returns every term.
func (idx *InvertedIndex) TopTerms(n int) []TermStat {
	stats := make([]TermStat, 0, len(idx.postings))
	for term, pl := range idx.postings {
		count := 0
		for _, p := range pl {
			count += p.Frequency()
		}
		stats = append(stats, TermStat{Term: term, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Term < stats[j].Term
	})
	if n > 0 && len(stats) > n {
		stats = stats[:n]
	}
	if idx.tokenCount > 0 {
		for i := range stats {
			stats[i].Percent = float64(stats[i].Count) * 100 / float64(idx.tokenCount)
		}
	}
	return stats
}
