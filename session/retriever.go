package session

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// DocumentRetriever ranks paragraphs of loaded documents by term overlap
// with the query and returns the best ones.
type DocumentRetriever struct {
	limit    int
	minScore float64

	mu     sync.RWMutex
	chunks []chunk
}

type chunk struct {
	source string
	text   string
	terms  map[string]int
}

type scored struct {
	idx   int
	score float64
}

var _ Retriever = (*DocumentRetriever)(nil)

// NewDocumentRetriever returns up to limit paragraphs scoring at least
// minScore in [0,1).
func NewDocumentRetriever(limit int, minScore float64) *DocumentRetriever {
	if limit <= 0 {
		limit = 3
	}
	return &DocumentRetriever{limit: limit, minScore: minScore}
}

// Load replaces the paragraphs taken from source. Paragraphs are separated
// by blank lines.
func (r *DocumentRetriever) Load(source, text string) {
	var fresh []chunk
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		fresh = append(fresh, chunk{source: source, text: para, terms: termCounts(para)})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.chunks[:0:0]
	for _, c := range r.chunks {
		if c.source != source {
			kept = append(kept, c)
		}
	}
	r.chunks = append(kept, fresh...)
}

// Len returns the number of loaded paragraphs.
func (r *DocumentRetriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chunks)
}

// Retrieve returns the best matching paragraphs, most relevant first,
// separated by blank lines.
func (r *DocumentRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	q := termCounts(query)
	if len(q) == 0 {
		return "", nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var hits []scored
	for i, c := range r.chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var raw float64
		for term := range q {
			raw += float64(c.terms[term])
		}
		if raw == 0 {
			continue
		}
		if s := normalize(raw); s >= r.minScore {
			hits = append(hits, scored{idx: i, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > r.limit {
		hits = hits[:r.limit]
	}

	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = r.chunks[h.idx].text
	}
	return strings.Join(parts, "\n\n"), nil
}

// normalize maps a raw match count to [0,1).
func normalize(score float64) float64 {
	return score / (1 + score)
}

// stopwords are dropped from both queries and documents.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "you": {}, "your": {},
	"with": {}, "that": {}, "this": {}, "what": {}, "how": {}, "can": {}, "from": {},
	"have": {}, "has": {}, "not": {}, "but": {}, "about": {}, "they": {}, "will": {},
}

func termCounts(s string) map[string]int {
	out := make(map[string]int)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out[f]++
	}
	return out
}
