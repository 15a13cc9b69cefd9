package wordcloud

import (
	"strings"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
)

// Tokenize turns one comment into a delta batch: periods stripped, whitespace
// separated, counted per word. Words appear in first-occurrence order so the
// batch order a viewer merges in is deterministic.
func Tokenize(text string) []domain.WordCount {
	cleaned := strings.ReplaceAll(text, ".", "")

	counts := make(map[string]int64)
	var order []string
	for _, word := range strings.Fields(cleaned) {
		if _, seen := counts[word]; !seen {
			order = append(order, word)
		}
		counts[word]++
	}

	batch := make([]domain.WordCount, 0, len(order))
	for _, word := range order {
		batch = append(batch, domain.WordCount{Text: word, Value: counts[word]})
	}
	return batch
}
