// Package match scores and orders tasks against a helper's interest query.
package match

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/example/neardoer/domain/task"
)

// Document joins the indexed fields of a task into one string.
func Document(title, description string, category task.Category) string {
	return title + " " + description + " " + string(category)
}

// DocumentOf returns the indexed document for t.
func DocumentOf(t task.Task) string {
	return Document(t.Title, t.Description, t.Category)
}

// Tokenize lowercases text and splits it on every rune that is not a letter,
// digit or underscore. Tokens shorter than two runes are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Terms returns the unigrams and bigrams of text after stop-word removal.
// Bigrams join adjacent surviving tokens.
func Terms(text string, stopWords map[string]struct{}) []string {
	tokens := Tokenize(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; !stop {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	terms := make([]string, 0, 2*len(kept)-1)
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// overlapTerms splits text on whitespace and commas, lowercases, and keeps
// the set of terms longer than one rune.
func overlapTerms(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			set[f] = struct{}{}
		}
	}
	return set
}
