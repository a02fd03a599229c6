package normalize

import (
	"strings"
)

// Query is the result of normalizing a raw search query.
type Query struct {
	Original      string   `json:"original"`
	Normalized    string   `json:"normalized"`
	RemovedWords  []string `json:"removed_words,omitempty"`
	ExpandedTerms []string `json:"expanded_terms,omitempty"`
}

// Normalizer lowercases, trims, strips stop words, and expands synonyms.
// It holds only read-only tables, so a single instance is safe to share
// across goroutines without locking.
type Normalizer struct {
	stopWords map[string]struct{}
	synonyms  map[string][]string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStopWords replaces the default stop-word set.
func WithStopWords(words []string) Option {
	return func(n *Normalizer) {
		n.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			n.stopWords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithSynonyms replaces the default synonym table. Keys are matched against
// lowercased tokens.
func WithSynonyms(synonyms map[string][]string) Option {
	return func(n *Normalizer) {
		n.synonyms = synonyms
	}
}

// New creates a Normalizer with the default English stop words and the
// default retail synonym table, unless overridden by options.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		stopWords: defaultStopWords(),
		synonyms:  defaultSynonyms(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize lowercases and trims the raw query, strips stop words (recording
// each removed token), and collects synonyms for the remaining tokens.
// Expansion is additive: synonyms widen the search, they never replace the
// canonical token. Normalize is a pure function of its input.
func (n *Normalizer) Normalize(raw string) Query {
	q := Query{Original: raw}

	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return q
	}

	tokens := strings.Fields(lowered)
	kept := make([]string, 0, len(tokens))

	for _, tok := range tokens {
		if _, isStop := n.stopWords[tok]; isStop {
			q.RemovedWords = append(q.RemovedWords, tok)
			continue
		}
		kept = append(kept, tok)

		if syns, ok := n.synonyms[tok]; ok {
			q.ExpandedTerms = append(q.ExpandedTerms, syns...)
		}
	}

	q.Normalized = strings.Join(kept, " ")
	return q
}

func defaultStopWords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"in", "is", "it", "of", "on", "or", "the", "to", "with",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func defaultSynonyms() map[string][]string {
	return map[string][]string{
		"shoes":    {"sneakers", "footwear"},
		"sneakers": {"shoes", "trainers"},
		"laptop":   {"notebook", "computer"},
		"phone":    {"smartphone", "mobile"},
		"tv":       {"television"},
		"jacket":   {"coat"},
		"bag":      {"handbag", "backpack"},
		"cheap":    {"affordable", "budget"},
	}
}
