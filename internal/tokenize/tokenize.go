// Package tokenize normalizes message text into countable words.
package tokenize

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// trimSet is stripped from both ends of every word.
const trimSet = "[-()\"#/@;:<>{}`+=~|.!?,]"

var urlSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"ftps":  true,
}

// Tokenizer applies the word policy. It holds no mutable state and is safe
// for concurrent use.
type Tokenizer struct {
	stopwords Stopwords
	validate  *validator.Validate
}

// New returns a Tokenizer excluding the given stopwords. A nil set excludes
// nothing.
func New(stopwords Stopwords) *Tokenizer {
	if stopwords == nil {
		stopwords = Stopwords{}
	}
	return &Tokenizer{
		stopwords: stopwords,
		validate:  validator.New(),
	}
}

func (t *Tokenizer) Stopwords() Stopwords {
	return t.stopwords
}

// Tokenize splits text on whitespace and returns the retained tokens in
// word order.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		if tok, ok := t.Normalize(word); ok {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Normalize applies the policy to one whitespace-delimited word:
//
//  1. strip trimSet from both ends and drop any whitespace left inside
//  2. discard URLs and email addresses
//  3. discard anything of one character or less
//  4. lowercase and keep only ASCII letters, digits and spaces
//  5. discard empty results, stopwords, pure digits and web-address remnants
func (t *Tokenizer) Normalize(word string) (string, bool) {
	word = strings.Join(strings.Fields(strings.Trim(word, trimSet)), "")

	if t.isURL(word) || t.isEmail(word) {
		return "", false
	}
	if utf8.RuneCountInString(word) <= 1 {
		return "", false
	}

	word = keepASCIIAlnum(strings.ToLower(word))

	switch {
	case word == "":
		return "", false
	case t.stopwords.Contains(word):
		return "", false
	case isDigits(word):
		return "", false
	case strings.HasPrefix(word, "http"), strings.HasPrefix(word, "www"), strings.HasSuffix(word, ".com"):
		return "", false
	}
	return word, true
}

func (t *Tokenizer) isURL(word string) bool {
	if t.validate.Var(word, "url") != nil {
		return false
	}
	u, err := url.Parse(word)
	if err != nil {
		return false
	}
	return urlSchemes[strings.ToLower(u.Scheme)] && u.Host != ""
}

func (t *Tokenizer) isEmail(word string) bool {
	return t.validate.Var(word, "email") == nil
}

func keepASCIIAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
