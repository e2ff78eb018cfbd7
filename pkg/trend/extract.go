package trend

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// word-like runs: Latin letters (accented included), apostrophes and hyphens
var wordRe = regexp.MustCompile(`[\p{Latin}'’\-]+`)

const (
	minTokenLen = 3
	tokenTrim   = "'’-"
)

// defaultStopwords holds English, Spanish and French function words plus generic noise terms.
var defaultStopwords = []string{
	// english
	"the", "and", "for", "with", "from", "that", "this", "these", "those", "are", "was",
	"were", "been", "being", "have", "has", "had", "will", "would", "could", "should",
	"can", "may", "might", "not", "but", "you", "your", "our", "their", "they", "them",
	"its", "it's", "his", "her", "she", "him", "who", "what", "when", "where", "why",
	"how", "which", "about", "into", "over", "out", "all", "any", "more", "most", "some",
	"than", "then", "there", "here", "just", "also", "very", "one", "two", "get", "got",
	"off", "per", "via", "now", "yet", "too", "own", "each", "such", "only", "other",
	"after", "before", "because", "while", "under", "again", "does", "did", "doing",
	// spanish
	"los", "las", "una", "uno", "unos", "unas", "del", "por", "para", "con", "sin",
	"que", "como", "más", "mas", "pero", "sus", "este", "esta", "estos", "estas",
	"ese", "esa", "entre", "sobre", "también", "hay", "muy", "todo", "todos", "cuando",
	// french
	"les", "des", "une", "est", "pour", "dans", "sur", "avec", "par", "pas", "qui",
	"aux", "ces", "ses", "son", "sont", "mais", "plus", "tout", "tous", "leur",
	"nous", "vous", "elle", "être", "été", "cette", "comme",
	// noise
	"trend", "trends", "trending", "news", "new", "latest", "best", "top", "says",
	"year", "years", "week", "day", "today", "2023", "2024", "2025", "2026",
}

// Extractor derives a keyword from free text when no seed matches:
// the most frequent bigram, else the most frequent token.
type Extractor struct {
	stopwords map[string]bool
}

// NewExtractor builds an extractor over the default stopwords plus extra ones.
func NewExtractor(extraStopwords []string) *Extractor {
	stop := make(map[string]bool, len(defaultStopwords)+len(extraStopwords))
	for _, w := range defaultStopwords {
		stop[w] = true
	}
	for _, w := range extraStopwords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			stop[w] = true
		}
	}
	return &Extractor{stopwords: stop}
}

// Extract returns the best keyword for text, or an empty string when nothing survives filtering.
func (e *Extractor) Extract(text string) string {
	tokens := e.Tokens(text)
	if len(tokens) == 0 {
		return ""
	}

	bigrams := make([]string, 0, len(tokens))
	for i := 0; i+1 < len(tokens); i++ {
		if e.stopwords[tokens[i]] || e.stopwords[tokens[i+1]] {
			continue
		}
		bigrams = append(bigrams, tokens[i]+" "+tokens[i+1])
	}
	if len(bigrams) > 0 {
		return mostFrequent(bigrams)
	}
	return mostFrequent(tokens)
}

// Tokens splits text into lowercase tokens of at least 3 letters with stopwords removed.
func (e *Extractor) Tokens(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))

	var tokens []string
	for _, w := range wordRe.FindAllString(text, -1) {
		w = strings.Trim(w, tokenTrim)
		if utf8.RuneCountInString(w) < minTokenLen || e.stopwords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// mostFrequent returns the value with the highest count; ties go to the one seen first.
func mostFrequent(values []string) string {
	counts := make(map[string]int, len(values))
	var order []string
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}
