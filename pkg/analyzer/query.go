package analyzer

import "strings"

// TokenizeQuery runs query through the same field-less tokenize pipeline at
// weight 1 and returns only the unigram stems (spec.md §4.4 step 1): the
// pipeline also emits bigram/trigram terms for the query, and those "_"
// terms are dropped since intersection only uses unigrams.
func TokenizeQuery(query string, cfg Config) []string {
	toks := tokenizeField(query, 1.0, cfg)
	stems := make([]string, 0, len(toks))
	for _, t := range toks {
		if strings.ContainsRune(t.Term, '_') {
			continue
		}
		stems = append(stems, t.Term)
	}
	return stems
}

// QueryTermFrequencies returns the query's own per-unigram-term counts
// (computeWordFrequencies in spec.md §4.4 step 4), used as qtf_t.
func QueryTermFrequencies(stems []string) map[string]int {
	freq := make(map[string]int, len(stems))
	for _, s := range stems {
		freq[s]++
	}
	return freq
}
