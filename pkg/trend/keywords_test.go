package trend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/signalradar/pkg/source"
)

func testAssigner() *KeywordAssigner {
	return NewKeywordAssigner(map[source.Category][]string{
		"wellness": {"longevity", "Magnesium", "creatine", "gut health"},
		"beauty":   {"lip oil", "peptide", "copper peptide"},
		"empty":    {},
	}, NewExtractor(nil))
}

func TestNormalizeText(t *testing.T) {
	tbl := []struct {
		in, want string
	}{
		{"", ""},
		{"  plain  ", "plain"},
		{"line one\nline two", "line one line two"},
		{"a\r\nb\rc", "a b c"},
		{"\n\ttrailing\n", "trailing"},
	}
	for _, tt := range tbl {
		assert.Equal(t, tt.want, NormalizeText(tt.in), "input %q", tt.in)
	}
}

func TestKeywordAssigner_SeedPrecedence(t *testing.T) {
	a := testAssigner()

	res, err := a.Assign("New study links creatine and magnesium to better sleep", "", "wellness")
	require.NoError(t, err)
	assert.Equal(t, "magnesium", res.Keyword, "earlier seed in the list wins over earlier text position")
	assert.Equal(t, []string{"magnesium", "creatine"}, res.Hits)
	assert.Equal(t, 2, res.HitCount())
	assert.False(t, res.Fallback)
}

func TestKeywordAssigner_CaseInsensitiveSubstring(t *testing.T) {
	a := testAssigner()

	res, err := a.Assign("COPPER PEPTIDE serums", "are everywhere", "beauty")
	require.NoError(t, err)
	assert.Equal(t, "peptide", res.Keyword, "peptide is a substring and precedes copper peptide in seeds")
	assert.Equal(t, 2, res.HitCount())
}

func TestKeywordAssigner_SummaryAndNewlines(t *testing.T) {
	a := testAssigner()

	res, err := a.Assign("Why everyone talks about", "gut\nhealth lately", "wellness")
	require.NoError(t, err)
	assert.Equal(t, "gut health", res.Keyword, "newline in summary becomes a space before matching")
}

func TestKeywordAssigner_Fallback(t *testing.T) {
	a := testAssigner()

	res, err := a.Assign("Cold water swimming clubs grow", "cold water swimming is popular", "wellness")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, 0, res.HitCount())
	assert.Equal(t, "cold water", res.Keyword)
}

func TestKeywordAssigner_EmptyInput(t *testing.T) {
	a := testAssigner()

	res, err := a.Assign("", "", "wellness")
	require.NoError(t, err)
	assert.Empty(t, res.Keyword)
	assert.Equal(t, 0, res.HitCount())

	res, err = a.Assign("The news is new", "and the trend", "empty")
	require.NoError(t, err)
	assert.Empty(t, res.Keyword, "only stopwords survive nothing")
}

func TestKeywordAssigner_UnknownCategory(t *testing.T) {
	a := testAssigner()

	_, err := a.Assign("anything", "", "sports")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestKeywordAssigner_Deterministic(t *testing.T) {
	a := testAssigner()
	title := "Runners swear by beetroot juice and beetroot powder"
	first, err := a.Assign(title, "", "wellness")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		res, err := a.Assign(title, "", "wellness")
		require.NoError(t, err)
		assert.Equal(t, first, res)
	}
}

func TestKeywordAssigner_DoesNotShareSeedSlices(t *testing.T) {
	seeds := map[source.Category][]string{"fashion": {"Gorpcore", "techwear"}}
	a := NewKeywordAssigner(seeds, nil)
	seeds["fashion"][0] = "changed"

	res, err := a.Assign("gorpcore jackets", "", "fashion")
	require.NoError(t, err)
	assert.Equal(t, "gorpcore", res.Keyword)
}

func TestExtractor_Tokens(t *testing.T) {
	e := NewExtractor([]string{"Allure"})

	tbl := []struct {
		name string
		text string
		want []string
	}{
		{"short and stop words dropped", "The spa is on fire", []string{"spa", "fire"}},
		{"apostrophes and hyphens trimmed", "'cold-plunge' -rituals- it's", []string{"cold-plunge", "rituals"}},
		{"accented latin kept", "crème brûlée à la française", []string{"crème", "brûlée", "française"}},
		{"decomposed accents composed", "cre\u0300me", []string{"crème"}},
		{"digits split words", "3d knit 2025 trends", []string{"knit"}},
		{"extra stopwords applied", "Allure picks serums", []string{"picks", "serums"}},
		{"empty", "", nil},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Tokens(tt.text))
		})
	}
}

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor(nil)

	tbl := []struct {
		name string
		text string
		want string
	}{
		{"most frequent bigram", "red carpet looks and red carpet gowns", "red carpet"},
		{"bigram tie goes to first", "silk scarves velvet bows", "silk scarves"},
		{"bigrams span removed stopwords", "sauna and the spa", "sauna spa"},
		{"single token when no bigram", "the sauna", "sauna"},
		{"nothing survives", "the and of 2025", ""},
		{"spanish and french stopwords", "los colores de la saison pour les femmes", "colores saison"},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text))
		})
	}
}

func TestMostFrequent(t *testing.T) {
	assert.Equal(t, "b", mostFrequent([]string{"a", "b", "b", "a", "b"}))
	assert.Equal(t, "a", mostFrequent([]string{"a", "b", "b", "a"}))
	assert.Equal(t, "x", mostFrequent([]string{"x"}))
}
