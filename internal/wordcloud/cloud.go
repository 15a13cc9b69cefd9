package wordcloud

import (
	"math"
	"sort"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
)

// MaxWords is the capacity of a viewer's word view.
const MaxWords = 100

// Cloud is a capacity-bounded word-count mapping. It is seeded from an
// authoritative snapshot and evolves by merging delta batches. Admission is
// first-come-first-served: once the cloud is full, unseen words are dropped
// while known words keep accumulating. This matches the behavior existing
// viewers rely on and must not be changed to an eviction policy.
//
// Cloud is not safe for concurrent use; each viewer connection owns its own.
type Cloud struct {
	capacity int
	counts   map[string]int64
}

// New creates an empty cloud with the standard capacity.
func New() *Cloud {
	return NewWithCapacity(MaxWords)
}

// NewWithCapacity creates an empty cloud holding at most capacity words.
func NewWithCapacity(capacity int) *Cloud {
	if capacity < 1 {
		capacity = 1
	}
	return &Cloud{
		capacity: capacity,
		counts:   make(map[string]int64),
	}
}

// Seed replaces the cloud's state with the given snapshot. Entries beyond the
// capacity are ignored in snapshot order.
func (c *Cloud) Seed(words []domain.WordCount) {
	c.counts = make(map[string]int64, min(len(words), c.capacity))
	for _, w := range words {
		if _, ok := c.counts[w.Text]; ok {
			c.counts[w.Text] = saturatingAdd(c.counts[w.Text], w.Value)
			continue
		}
		if len(c.counts) >= c.capacity {
			continue
		}
		c.counts[w.Text] = w.Value
	}
}

// Merge folds one delta batch into the cloud, in batch order. Known words
// accumulate with saturating addition; new words are admitted only while the
// cloud has room.
func (c *Cloud) Merge(batch []domain.WordCount) {
	for _, w := range batch {
		if current, ok := c.counts[w.Text]; ok {
			c.counts[w.Text] = saturatingAdd(current, w.Value)
			continue
		}
		if len(c.counts) >= c.capacity {
			continue
		}
		c.counts[w.Text] = w.Value
	}
}

// Words returns the current state ordered by count descending, ties broken
// alphabetically for deterministic output.
func (c *Cloud) Words() []domain.WordCount {
	words := make([]domain.WordCount, 0, len(c.counts))
	for text, value := range c.counts {
		words = append(words, domain.WordCount{Text: text, Value: value})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Value != words[j].Value {
			return words[i].Value > words[j].Value
		}
		return words[i].Text < words[j].Text
	})
	return words
}

// Count returns the accumulated count for a word.
func (c *Cloud) Count(word string) (int64, bool) {
	v, ok := c.counts[word]
	return v, ok
}

// Len returns the number of words currently held.
func (c *Cloud) Len() int {
	return len(c.counts)
}

func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
