package relevance

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/internal/normalize"
)

// Searchable field names used as highlight keys.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldTags        = "tags"
)

// Highlight markers wrapped around the matched substring.
const (
	MarkOpen  = "<mark>"
	MarkClose = "</mark>"
)

// Weights holds the per-field score multipliers. Name must outweigh
// description, and description must outweigh tags.
type Weights struct {
	Name        float64
	Description float64
	Tags        float64
}

// DefaultWeights returns the standard field weights.
func DefaultWeights() Weights {
	return Weights{Name: 10, Description: 5, Tags: 3}
}

// Match position bonuses. An exact full-field match beats a prefix match,
// which beats a mid-string match.
const (
	bonusExact     = 1.0
	bonusPrefix    = 0.5
	bonusSubstring = 0.25
)

// Scorer computes weighted relevance scores and highlight snippets. It is
// stateless apart from its weight table and safe to run in parallel across
// candidates.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score computes the relevance of product against the normalized query. The
// normalized term and every expanded synonym are tried as case-insensitive
// substrings of each searchable field; the best-positioned match per field
// contributes weight x (1 + bonus). Highlights wrap the matched substring in
// markers at its original position, preserving the field's original casing.
//
// An empty query scores 0 with no highlights; the orchestrator decides
// whether zero-score candidates stay in the result set.
func (s *Scorer) Score(p *domain.Product, q normalize.Query) (float64, map[string]string) {
	terms := queryTerms(q)
	if len(terms) == 0 {
		return 0, nil
	}

	var score float64
	highlights := make(map[string]string)

	if bonus, start, length, ok := bestMatch(p.Name, terms); ok {
		score += s.weights.Name * (1 + bonus)
		highlights[FieldName] = markSnippet(p.Name, start, length)
	}

	if bonus, start, length, ok := bestMatch(p.Description, terms); ok {
		score += s.weights.Description * (1 + bonus)
		highlights[FieldDescription] = markSnippet(p.Description, start, length)
	}

	if bonus, snippet, ok := bestTagMatch(p.Tags, terms); ok {
		score += s.weights.Tags * (1 + bonus)
		highlights[FieldTags] = snippet
	}

	if len(highlights) == 0 {
		return 0, nil
	}
	return score, highlights
}

// queryTerms returns the normalized query plus its expanded synonyms,
// skipping empties.
func queryTerms(q normalize.Query) []string {
	terms := make([]string, 0, 1+len(q.ExpandedTerms))
	if q.Normalized != "" {
		terms = append(terms, q.Normalized)
	}
	for _, t := range q.ExpandedTerms {
		if t != "" {
			terms = append(terms, strings.ToLower(t))
		}
	}
	return terms
}

// bestMatch finds the highest-bonus match of any term in text. It returns
// the bonus and the match position in the original text.
func bestMatch(text string, terms []string) (bonus float64, start, length int, ok bool) {
	if text == "" {
		return 0, 0, 0, false
	}

	best := -1.0

	for _, term := range terms {
		s, e, found := foldIndex(text, term)
		if !found {
			continue
		}

		var b float64
		switch {
		case s == 0 && e == len(text):
			b = bonusExact
		case s == 0:
			b = bonusPrefix
		default:
			b = bonusSubstring
		}

		if b > best {
			best = b
			start = s
			length = e - s
		}
	}

	if best < 0 {
		return 0, 0, 0, false
	}
	return best, start, length, true
}

// foldIndex finds the first case-insensitive occurrence of term in text and
// returns its byte offsets into text. It compares rune by rune so characters
// whose lowercase form has a different byte length still map to the right
// position, keeping highlight offsets on rune boundaries.
func foldIndex(text, term string) (start, end int, ok bool) {
	if term == "" {
		return 0, 0, false
	}

	for i := range text {
		j, k := i, 0
		for k < len(term) {
			if j >= len(text) {
				break
			}
			tr, trSize := utf8.DecodeRuneInString(text[j:])
			qr, qrSize := utf8.DecodeRuneInString(term[k:])
			if unicode.ToLower(tr) != unicode.ToLower(qr) {
				break
			}
			j += trSize
			k += qrSize
		}
		if k == len(term) {
			return i, j, true
		}
	}
	return 0, 0, false
}

// bestTagMatch scores terms against each tag individually and highlights the
// best-matching tag.
func bestTagMatch(tags []string, terms []string) (bonus float64, snippet string, ok bool) {
	best := -1.0
	for _, tag := range tags {
		if b, start, length, matched := bestMatch(tag, terms); matched && b > best {
			best = b
			snippet = markSnippet(tag, start, length)
		}
	}
	if best < 0 {
		return 0, "", false
	}
	return best, snippet, true
}

// markSnippet wraps text[start:start+length] in highlight markers, keeping
// the original casing.
func markSnippet(text string, start, length int) string {
	end := start + length
	if start < 0 || end > len(text) {
		return text
	}
	return text[:start] + MarkOpen + text[start:end] + MarkClose + text[end:]
}
