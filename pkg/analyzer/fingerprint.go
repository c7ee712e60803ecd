package analyzer

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Fingerprint computes a 64-bit SimHash over the unweighted multiset of
// unigram stems in stream (spec.md §4.1): ngram terms (those containing
// "_") are excluded, and each unigram's field weight is ignored -- only its
// occurrence count across the document acts as its vote weight.
func Fingerprint(stream []Token) uint64 {
	counts := make(map[string]int)
	for _, tok := range stream {
		if strings.ContainsRune(tok.Term, '_') {
			continue
		}
		counts[tok.Term]++
	}

	var votes [64]int
	for term, count := range counts {
		h := hash64(term)
		for bit := 0; bit < 64; bit++ {
			if h&(1<<uint(bit)) != 0 {
				votes[bit] += count
			} else {
				votes[bit] -= count
			}
		}
	}

	var fp uint64
	for bit := 0; bit < 64; bit++ {
		if votes[bit] > 0 {
			fp |= 1 << uint(bit)
		}
	}
	return fp
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// HammingDistance returns the number of differing bits between two
// fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
