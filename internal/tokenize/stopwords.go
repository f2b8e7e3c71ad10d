package tokenize

import (
	_ "embed"
	"sort"
	"strings"
)

//go:embed stopwords.txt
var defaultStopwords string

// Stopwords is a set of tokens excluded regardless of frequency.
type Stopwords map[string]struct{}

// NewStopwords builds a set from words, lowercased and trimmed.
func NewStopwords(words ...string) Stopwords {
	s := make(Stopwords, len(words))
	s.Add(words...)
	return s
}

// DefaultStopwords returns a fresh copy of the built-in English list.
func DefaultStopwords() Stopwords {
	return NewStopwords(strings.Fields(defaultStopwords)...)
}

func (s Stopwords) Add(words ...string) {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s[w] = struct{}{}
		}
	}
}

// AddCleaned adds words as given and in the form Normalize compares them in,
// so a user entry such as "don't" also excludes the token "dont".
func (s Stopwords) AddCleaned(words ...string) {
	for _, w := range words {
		s.Add(w, keepASCIIAlnum(strings.ToLower(w)))
	}
}

func (s Stopwords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// Words returns the members in sorted order.
func (s Stopwords) Words() []string {
	words := make([]string, 0, len(s))
	for w := range s {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
