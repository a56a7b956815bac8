// Package query turns a free-text request into location and category tags.
//
// Both vocabularies are scanned in their fixed order and every match overwrites
// the previous one, so when a query names two regions (or two topics) the one
// listed later in the vocabulary wins, regardless of where it appears in the query.
package query

import (
	"strings"
	"sync"
	"unicode"

	"github.com/kljensen/snowball/english"
	"github.com/pemistahl/lingua-go"

	"github.com/dtnitsch/news-digest/models"
)

// Locations are the region identifiers used in listing paths.
var Locations = []string{
	"maharashtra", "delhi", "karnataka", "tamil-nadu", "telangana",
	"uttar-pradesh", "west-bengal", "gujarat", "madhya-pradesh", "bihar",
	"chandigarh", "rajasthan", "arunachal-pradesh", "andhra-pradesh",
	"assam", "chhattisgarh", "goa", "haryana", "himachal-pradesh",
	"jammu-kashmir", "jharkhand", "kerala", "manipur", "meghalaya",
	"mizoram", "nagaland", "odisha", "punjab", "sikkim", "tripura",
	"uttarakhand", "andaman-nicobar-islands", "dadra-nagar-haveli",
	"daman-diu", "lakshadweep", "india",
}

// Categories are the topic labels, also the classifier's candidate labels.
var Categories = []string{
	"politics", "sports", "finance", "business", "entertainment", "incident", "technology", "other",
}

// Languages the detector chooses between.
var detectableLanguages = []lingua.Language{
	lingua.English,
	lingua.Hindi,
	lingua.Bengali,
	lingua.Marathi,
	lingua.Tamil,
	lingua.Telugu,
	lingua.Gujarati,
	lingua.Punjabi,
	lingua.Urdu,
}

type Interpreter struct {
	locations  []string
	categories []string
	stemmed    []string
	detect     bool

	once     sync.Once
	detector lingua.LanguageDetector
}

type Option func(*Interpreter)

// WithLanguageDetection toggles lingua detection. Building the detector loads
// language models, so short-lived callers that don't need it can skip it.
func WithLanguageDetection(enabled bool) Option {
	return func(in *Interpreter) { in.detect = enabled }
}

func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		locations:  Locations,
		categories: Categories,
		detect:     true,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.stemmed = make([]string, len(in.categories))
	for i, c := range in.categories {
		in.stemmed[i] = stem(c)
	}
	return in
}

// Interpret extracts tags from the query. Either tag may be empty.
func (in *Interpreter) Interpret(query string) models.QueryTags {
	q := strings.ToLower(query)

	var tags models.QueryTags
	for _, loc := range in.locations {
		if strings.Contains(q, strings.Split(loc, "-")[0]) {
			tags.Location = loc
		}
	}

	tokens := map[string]struct{}{}
	for _, tok := range Tokenize(q) {
		tokens[stem(tok)] = struct{}{}
	}
	for i, s := range in.stemmed {
		if _, ok := tokens[s]; ok {
			tags.Category = in.categories[i]
		}
	}

	if in.detect {
		tags.Language = in.language(query)
	}
	return tags
}

// Tokenize splits on anything that is not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func stem(word string) string {
	return english.Stem(word, true)
}

// language returns the ISO 639-1 code of the detected language, or "" when unsure.
func (in *Interpreter) language(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	in.once.Do(func() {
		in.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectableLanguages...).
			Build()
	})
	lang, ok := in.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
