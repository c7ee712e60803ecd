// Package search answers queries against a merged index: the offset
// directory and URL->id map are loaded once at startup; every query then
// opens its own handle onto the final index, seeks directly to each term's
// posting list, and scores surviving documents by cosine similarity
// (spec.md §4.4).
package search

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kittclouds/lexidex/internal/config"
	"github.com/kittclouds/lexidex/pkg/analyzer"
	"github.com/kittclouds/lexidex/pkg/corpuserr"
	"github.com/kittclouds/lexidex/pkg/merge"
)

// Searcher serves search over one merged index directory. Safe for
// concurrent queries: the offset directory and URL->id map are read-only
// after Open, and each Search call owns its own file handle and posting
// cache.
type Searcher struct {
	cfg            config.Config
	acfg           analyzer.Config
	finalIndexPath string
	offsets        map[string]int64
	numDocs        int
	urlOf          map[int]string
}

// Open loads the URL->id map and the offset directory for the index under
// outDir. The final index itself is left on disk; it is opened fresh by
// each Search call.
func Open(outDir string, cfg config.Config, acfg analyzer.Config) (*Searcher, error) {
	mapping, err := loadDocIDMapping(outDir)
	if err != nil {
		return nil, err
	}
	urlOf := make(map[int]string, len(mapping))
	for url, id := range mapping {
		urlOf[id] = url
	}

	offsets, numDocs, err := loadBookkeeping(outDir)
	if err != nil {
		return nil, err
	}

	return &Searcher{
		cfg:            cfg,
		acfg:           acfg,
		finalIndexPath: filepath.Join(outDir, "final_index.json"),
		offsets:        offsets,
		numDocs:        numDocs,
		urlOf:          urlOf,
	}, nil
}

func loadDocIDMapping(outDir string) (map[string]int, error) {
	data, err := os.ReadFile(filepath.Join(outDir, "doc_id_mapping.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: doc_id_mapping.json: %v", corpuserr.ErrMissingSidecar, err)
	}
	var mapping map[string]int
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("%w: doc_id_mapping.json is not valid JSON: %v", corpuserr.ErrIndexIntegrity, err)
	}
	return mapping, nil
}

func loadBookkeeping(outDir string) (map[string]int64, int, error) {
	data, err := os.ReadFile(filepath.Join(outDir, "bookkeeping.json"))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bookkeeping.json: %v", corpuserr.ErrMissingSidecar, err)
	}
	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("%w: bookkeeping.json is not valid JSON: %v", corpuserr.ErrIndexIntegrity, err)
	}
	numDocs, ok := raw["total_docs"]
	if !ok {
		return nil, 0, fmt.Errorf("%w: bookkeeping.json missing total_docs", corpuserr.ErrIndexIntegrity)
	}
	delete(raw, "total_docs")
	return raw, int(numDocs), nil
}

// Search tokenizes query through the Analyzer's unigram-only query
// pipeline, intersects the query terms' document-id sets, scores
// surviving documents by cosine similarity against the query vector, and
// returns at most config.TopK canonical URLs, highest-scoring first
// (spec.md §4.4).
func (s *Searcher) Search(query string) ([]string, error) {
	stems := analyzer.TokenizeQuery(query, s.acfg)
	if len(stems) == 0 {
		return nil, nil
	}
	qtf := analyzer.QueryTermFrequencies(stems)

	terms := make([]string, 0, len(qtf))
	for t := range qtf {
		terms = append(terms, t)
	}
	sort.Strings(terms) // deterministic vector-component ordering

	f, err := os.Open(s.finalIndexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: final_index.json: %v", corpuserr.ErrMissingSidecar, err)
	}
	defer f.Close()

	cache := make(map[string][]merge.ScoredPosting, len(terms))
	for _, term := range terms {
		postings, err := s.postingsOf(f, term)
		if err != nil {
			return nil, err
		}
		cache[term] = postings
	}

	candidates := s.intersect(terms, cache)
	if candidates.IsEmpty() {
		return nil, nil
	}

	qVec := s.queryVector(terms, qtf, cache)

	byTerm := make([]map[int]float64, len(terms))
	for i, term := range terms {
		m := make(map[int]float64, len(cache[term]))
		for _, p := range cache[term] {
			m[p.DocID] = p.TFIDF
		}
		byTerm[i] = m
	}

	type scoredDoc struct {
		docID int
		score float64
	}
	var results []scoredDoc
	it := candidates.Iterator()
	for it.HasNext() {
		docID := int(it.Next())
		dVec := make([]float64, len(terms))
		for i, m := range byTerm {
			dVec[i] = m[docID]
		}
		results = append(results, scoredDoc{docID: docID, score: cosineSimilarity(qVec, dVec)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].docID < results[j].docID
	})

	k := s.cfg.TopK
	if k > len(results) {
		k = len(results)
	}
	urls := make([]string, 0, k)
	for _, r := range results[:k] {
		if url, ok := s.urlOf[r.docID]; ok {
			urls = append(urls, url)
		}
	}
	return urls, nil
}

// intersect builds the conjunctive candidate set across every query term's
// fetched posting list (spec.md §4.4 step 3). A term absent from the
// directory yields an empty list, collapsing the whole intersection.
func (s *Searcher) intersect(terms []string, cache map[string][]merge.ScoredPosting) *roaring.Bitmap {
	var result *roaring.Bitmap
	for _, term := range terms {
		bm := roaring.New()
		for _, p := range cache[term] {
			bm.Add(uint32(p.DocID))
		}
		if result == nil {
			result = bm
		} else {
			result.And(bm)
		}
		if result.IsEmpty() {
			break
		}
	}
	if result == nil {
		result = roaring.New()
	}
	return result
}

// queryVector computes q_t = (1 + ln(qtf_t)) * ln((N+1)/(df_t+1)) for each
// query term, where df_t is the length of the fetched (already truncated)
// posting-list slice (spec.md §4.4 step 4).
func (s *Searcher) queryVector(terms []string, qtf map[string]int, cache map[string][]merge.ScoredPosting) []float64 {
	vec := make([]float64, len(terms))
	for i, term := range terms {
		df := len(cache[term])
		vec[i] = (1 + math.Log(float64(qtf[term]))) * math.Log(float64(s.numDocs+1)/float64(df+1))
	}
	return vec
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// postingsOf implements spec.md §4.4's postings_of(term): seek to the
// term's recorded offset, read one line, trim it to valid JSON, and return
// at most the top PostingTruncation fraction of the list. Lists shorter than
// PostingTruncationFloor entries are returned whole.
func (s *Searcher) postingsOf(f *os.File, term string) ([]merge.ScoredPosting, error) {
	offset, ok := s.offsets[term]
	if !ok {
		return nil, nil
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek to %q: %v", corpuserr.ErrIndexIntegrity, term, err)
	}
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("%w: read line for %q: %v", corpuserr.ErrIndexIntegrity, term, err)
	}
	line = strings.TrimRight(line, ",\n")

	var decoded map[string][]merge.ScoredPosting
	if err := json.Unmarshal([]byte("{"+line+"}"), &decoded); err != nil {
		return nil, fmt.Errorf("%w: offset for %q did not yield valid JSON: %v", corpuserr.ErrIndexIntegrity, term, err)
	}
	postings, ok := decoded[term]
	if !ok {
		return nil, fmt.Errorf("%w: term %q absent at its recorded offset", corpuserr.ErrIndexIntegrity, term)
	}

	return truncate(postings, s.cfg), nil
}

func truncate(postings []merge.ScoredPosting, cfg config.Config) []merge.ScoredPosting {
	if len(postings) < cfg.PostingTruncationFloor {
		return postings
	}
	n := int(math.Ceil(float64(len(postings)) * cfg.PostingTruncation))
	if n < 1 {
		n = 1
	}
	if n > len(postings) {
		n = len(postings)
	}
	return postings[:n]
}
