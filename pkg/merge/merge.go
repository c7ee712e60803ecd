// Package merge implements the three-phase Merger of spec.md §4.3: a
// streaming document-frequency pass, a chunked external sort, and a k-way
// heap merge that produces the final tf-idf index and its byte-offset
// directory. No phase holds every term's posting list in memory at once.
package merge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Posting is one document's raw contribution to a term, as written by the
// Indexer (index.Posting's on-disk shape).
type Posting struct {
	DocID int     `json:"document_id"`
	TF    float64 `json:"tf"`
}

// ScoredPosting is a Posting augmented with its tf-idf score, the shape
// final_index.json stores (spec.md §6).
type ScoredPosting struct {
	DocID int     `json:"document_id"`
	TF    float64 `json:"tf"`
	TFIDF float64 `json:"tf-idf score"`
}

// Merger runs the three merge phases over a directory of partial indexes
// produced by an Indexer run.
type Merger struct {
	OutDir    string
	ChunkSize int

	chunkDir string
}

// New returns a Merger that reads partial_indexes/ and writes its output
// artifacts under outDir. chunkSize is the Phase B chunk size C (spec.md
// §4.3; default 10000).
func New(outDir string, chunkSize int) *Merger {
	if chunkSize <= 0 {
		chunkSize = 10000
	}
	return &Merger{OutDir: outDir, ChunkSize: chunkSize, chunkDir: filepath.Join(outDir, "chunks")}
}

// Report is the tally written to report.txt.
type Report struct {
	NumDocuments   int
	NumUniqueTerms int
	IndexSizeKB    float64
}

// Merge runs Phases A, B, and C in sequence and writes every output
// artifact spec.md §6 names: final_index.json, bookkeeping.json, and
// report.txt. Chunk files are deleted once Phase C completes; partial
// index files are left in place for debugging (spec.md §4.3).
func (m *Merger) Merge() (Report, error) {
	partials, err := partialIndexFiles(m.OutDir)
	if err != nil {
		return Report{}, err
	}

	numDocs, err := countDocuments(m.OutDir)
	if err != nil {
		return Report{}, err
	}

	docFreq, err := m.phaseA(partials)
	if err != nil {
		return Report{}, err
	}

	chunkFiles, err := m.phaseB(partials)
	if err != nil {
		return Report{}, err
	}
	defer m.cleanupChunks(chunkFiles)

	offsets, err := m.phaseC(chunkFiles, docFreq, numDocs)
	if err != nil {
		return Report{}, err
	}

	if err := m.writeBookkeeping(offsets, numDocs); err != nil {
		return Report{}, err
	}

	report, err := m.writeReport(numDocs, len(offsets))
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

func (m *Merger) cleanupChunks(files []string) {
	for _, f := range files {
		_ = os.Remove(f)
	}
	_ = os.Remove(m.chunkDir)
}

func partialIndexFiles(outDir string) ([]string, error) {
	dir := filepath.Join(outDir, "partial_indexes")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("merge: read partial_indexes: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func countDocuments(outDir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(outDir, "doc_id_mapping.json"))
	if err != nil {
		return 0, fmt.Errorf("merge: read doc_id_mapping.json: %w", err)
	}
	var mapping map[string]int
	if err := json.Unmarshal(data, &mapping); err != nil {
		return 0, fmt.Errorf("merge: parse doc_id_mapping.json: %w", err)
	}
	return len(mapping), nil
}

// iteratePartialIndex streams a partial index's term/postings pairs one at
// a time via a token-level JSON decoder, so no partial index is loaded
// whole: Phase A holds one term's posting list at a time, Phase B at most
// one chunk of terms.
func iteratePartialIndex(path string, fn func(term string, postings []Posting) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("merge: open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	if _, err := dec.Token(); err != nil { // consume '{'
		return fmt.Errorf("merge: %s: %w", path, err)
	}
	for dec.More() {
		termTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("merge: %s: read term: %w", path, err)
		}
		term, ok := termTok.(string)
		if !ok {
			return fmt.Errorf("merge: %s: expected string term key", path)
		}
		var postings []Posting
		if err := dec.Decode(&postings); err != nil {
			return fmt.Errorf("merge: %s: decode postings for %q: %w", path, term, err)
		}
		if err := fn(term, postings); err != nil {
			return err
		}
	}
	return nil
}
