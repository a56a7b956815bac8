package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/news-digest/models"
)

func TestInterpret(t *testing.T) {
	in := New(WithLanguageDetection(false))

	tests := []struct {
		query string
		want  models.QueryTags
	}{
		{"sports news in delhi", models.QueryTags{Location: "delhi", Category: "sports"}},
		{"news", models.QueryTags{}},
		{"maharashtra politics update", models.QueryTags{Location: "maharashtra", Category: "politics"}},
		{"Latest from KERALA", models.QueryTags{Location: "kerala"}},
		{"tamil politics", models.QueryTags{Location: "tamil-nadu", Category: "politics"}},
		{"uttar pradesh technology", models.QueryTags{Location: "uttar-pradesh", Category: "technology"}},
		{"goa incidents", models.QueryTags{Location: "goa", Category: "incident"}},
		{"business, finance & more", models.QueryTags{Category: "business"}},
		{"entertaining stories from bihar", models.QueryTags{Location: "bihar", Category: "entertainment"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, in.Interpret(tt.query))
		})
	}
}

func TestInterpretLastVocabularyMatchWins(t *testing.T) {
	in := New(WithLanguageDetection(false))

	// goa is listed after delhi, so it wins even though delhi comes last in the query.
	assert.Equal(t, "goa", in.Interpret("goa or delhi").Location)
	assert.Equal(t, "goa", in.Interpret("delhi or goa").Location)

	// "india" is last in the vocabulary and beats any state.
	assert.Equal(t, "india", in.Interpret("delhi india").Location)

	// sports is listed after politics.
	assert.Equal(t, "sports", in.Interpret("politics and sports").Category)
	assert.Equal(t, "sports", in.Interpret("sports and politics").Category)
}

func TestInterpretLocationIsSubstringMatch(t *testing.T) {
	in := New(WithLanguageDetection(false))
	assert.Equal(t, "west-bengal", in.Interpret("westbound traffic").Location)
	assert.Equal(t, "andhra-pradesh", in.Interpret("andhra").Location)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"sports", "news", "in", "delhi", "2024"}, Tokenize("sports-news, in delhi (2024)!"))
	assert.Empty(t, Tokenize("  ,,  "))
}

func TestInterpretDetectsLanguage(t *testing.T) {
	in := New()

	tags := in.Interpret("latest sports news from delhi today")
	require.Equal(t, "delhi", tags.Location)
	assert.Equal(t, "en", tags.Language)

	hindi := in.Interpret("दिल्ली में आज की खेल समाचार")
	assert.NotEqual(t, "en", hindi.Language)
	assert.Empty(t, hindi.Location)

	assert.Empty(t, in.Interpret("   ").Language)
}
