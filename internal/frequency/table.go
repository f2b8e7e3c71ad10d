// Package frequency accumulates token counts and renders them in a stable
// order.
package frequency

import (
	"sort"
)

// Entry is one token and its count.
type Entry struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Table maps tokens to occurrence counts. The zero value is not usable; use
// New. A Table is not safe for concurrent use; give each worker its own and
// Merge them.
type Table struct {
	counts map[string]int
	total  int
}

func New() *Table {
	return &Table{counts: make(map[string]int)}
}

// Add increments the count of each token by one.
func (t *Table) Add(tokens ...string) {
	for _, tok := range tokens {
		t.counts[tok]++
	}
	t.total += len(tokens)
}

// Merge adds every count in other to t. Merging is commutative and
// associative.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	for tok, n := range other.counts {
		t.counts[tok] += n
	}
	t.total += other.total
}

func (t *Table) Count(token string) int {
	return t.counts[token]
}

// Len is the number of distinct tokens.
func (t *Table) Len() int {
	return len(t.counts)
}

// Total is the number of tokens added.
func (t *Table) Total() int {
	return t.total
}

// Map returns a copy of the counts.
func (t *Table) Map() map[string]int {
	m := make(map[string]int, len(t.counts))
	for tok, n := range t.counts {
		m[tok] = n
	}
	return m
}

// Entries returns all tokens ordered by descending count, then ascending
// token.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.counts))
	for tok, n := range t.counts {
		entries = append(entries, Entry{Token: tok, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Token < entries[j].Token
	})
	return entries
}

// Top returns at most n entries in presentation order.
func (t *Table) Top(n int) []Entry {
	entries := t.Entries()
	if n >= 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
