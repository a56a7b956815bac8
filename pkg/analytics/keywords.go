package analytics

import (
	"fmt"
	"sort"
	"strings"
)

// Keyword is a term and how often it occurs across the corpus.
type Keyword struct {
	Word  string
	Count int
}

func (k Keyword) String() string {
	return fmt.Sprintf("%s:%d", k.Word, k.Count)
}

// Map generates a word frequency map for a single document.
func Map(content string, a *Analytics) map[string]int {
	return a.WordFrequency(content)
}

// Reduce aggregates per-document frequency maps into one.
func Reduce(intermediate []map[string]int) map[string]int {
	finalResults := make(map[string]int)

	for _, counts := range intermediate {
		for word, count := range counts {
			finalResults[word] += count
		}
	}

	return finalResults
}

// CorpusKeywords maps every document, reduces, and returns the top n terms.
func CorpusKeywords(docs []string, n int) []Keyword {
	a := &Analytics{}
	intermediate := make([]map[string]int, 0, len(docs))
	for _, doc := range docs {
		intermediate = append(intermediate, Map(doc, a))
	}
	return TopKeywords(Reduce(intermediate), n)
}

// isValidKeyword drops obviously broken tokens: trailing ":" or "=", unmatched
// delimiters or quotes.
func isValidKeyword(word string) bool {
	if strings.HasSuffix(word, ":") || strings.HasSuffix(word, "=") {
		return false
	}
	if strings.Contains(word, "(") && !strings.Contains(word, ")") {
		return false
	}
	if strings.Contains(word, "[") && !strings.Contains(word, "]") {
		return false
	}
	if strings.Count(word, "\"")%2 != 0 || strings.Count(word, "'")%2 != 0 {
		return false
	}
	return true
}

// TopKeywords returns the n most frequent valid keywords, highest count first.
// Ties are broken alphabetically so output is stable.
func TopKeywords(wordCounts map[string]int, n int) []Keyword {
	if n <= 0 {
		return []Keyword{}
	}

	ss := make([]Keyword, 0, len(wordCounts))
	for k, v := range wordCounts {
		if isValidKeyword(k) {
			ss = append(ss, Keyword{Word: k, Count: v})
		}
	}

	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Count != ss[j].Count {
			return ss[i].Count > ss[j].Count
		}
		return ss[i].Word < ss[j].Word
	})

	if len(ss) > n {
		ss = ss[:n]
	}
	return ss
}
