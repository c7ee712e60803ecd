// Package index builds per-run partial indexes from a raw document corpus:
// URL canonicalization and filtering, HTML analysis, near-duplicate
// rejection, term-frequency accumulation, and the MAX_DOCS flush policy
// spec.md §4.2 requires of the Indexer.
package index

// Posting is one document's contribution to a term's posting list.
type Posting struct {
	DocID int     `json:"document_id"`
	TF    float64 `json:"tf"`
}

// PartialIndex is the in-memory term -> posting list map the Indexer
// accumulates between flushes. It is the sole unbounded structure in the
// pipeline, capped by the MAX_DOCS flush policy (spec.md §4, Memory
// discipline).
type PartialIndex struct {
	Postings map[string][]Posting
	DocCount int
}

// NewPartialIndex returns an empty partial index.
func NewPartialIndex() *PartialIndex {
	return &PartialIndex{Postings: make(map[string][]Posting)}
}

// Add appends a posting for term, contributed by docID with the given
// term frequency.
func (p *PartialIndex) Add(term string, docID int, tf float64) {
	p.Postings[term] = append(p.Postings[term], Posting{DocID: docID, TF: tf})
}

// Reset clears the partial index in place, ready for the next flush cycle.
func (p *PartialIndex) Reset() {
	p.Postings = make(map[string][]Posting)
	p.DocCount = 0
}

// Empty reports whether the partial index has accumulated no documents.
func (p *PartialIndex) Empty() bool {
	return p.DocCount == 0
}
