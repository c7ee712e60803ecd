package merge

import (
	"bufio"
	"container/heap"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// chunkStream is a lazy (term, postings) sequence backed by one chunk
// file's JSON-lines reader.
type chunkStream struct {
	file    *os.File
	scanner *bufio.Scanner
	head    termPostings
	ok      bool
	index   int // for heap
}

func openChunkStream(path string) (*chunkStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("merge: open chunk %s: %w", path, err)
	}
	s := &chunkStream{file: f, scanner: bufio.NewScanner(f)}
	s.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if err := s.advance(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *chunkStream) advance() error {
	if !s.scanner.Scan() {
		s.ok = false
		return s.scanner.Err()
	}
	var tp termPostings
	if err := json.Unmarshal(s.scanner.Bytes(), &tp); err != nil {
		return fmt.Errorf("merge: decode chunk line: %w", err)
	}
	s.head = tp
	s.ok = true
	return nil
}

// streamHeap is a min-heap of chunkStreams ordered by the next term each
// has buffered, the priority queue the k-way merge pops from (spec.md
// §4.3 Phase C).
type streamHeap []*chunkStream

func (h streamHeap) Len() int           { return len(h) }
func (h streamHeap) Less(i, j int) bool { return h[i].head.Term < h[j].head.Term }
func (h streamHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }

func (h *streamHeap) Push(x interface{}) {
	n := len(*h)
	s := x.(*chunkStream)
	s.index = n
	*h = append(*h, s)
}

func (h *streamHeap) Pop() interface{} {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*h = old[0 : n-1]
	return s
}

// countingWriter tracks the byte offset of the next write, so the offset
// directory can record file.tell() before each term is emitted.
type countingWriter struct {
	w      *bufio.Writer
	offset int64
}

func (c *countingWriter) writeString(s string) error {
	n, err := c.w.WriteString(s)
	c.offset += int64(n)
	return err
}

// phaseC opens every chunk file as a lazy stream and merges them by
// ascending term using a min-heap, emitting the scored final index and
// recording each term's byte offset (spec.md §4.3 Phase C).
func (m *Merger) phaseC(chunkFiles []string, df map[string]int, numDocs int) (map[string]int64, error) {
	streams := make([]*chunkStream, 0, len(chunkFiles))
	defer func() {
		for _, s := range streams {
			s.file.Close()
		}
	}()

	h := &streamHeap{}
	heap.Init(h)
	for _, path := range chunkFiles {
		s, err := openChunkStream(path)
		if err != nil {
			return nil, err
		}
		streams = append(streams, s)
		if s.ok {
			heap.Push(h, s)
		}
	}

	outPath := finalIndexPath(m.OutDir)
	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("merge: create final index: %w", err)
	}
	defer f.Close()

	cw := &countingWriter{w: bufio.NewWriter(f)}
	if err := cw.writeString("{\n"); err != nil {
		return nil, err
	}

	offsets := make(map[string]int64)
	first := true

	flushTerm := func(term string, postings []Posting) error {
		scored := scorePostings(term, postings, df[term], numDocs)

		if !first {
			if err := cw.writeString(",\n"); err != nil {
				return err
			}
		}
		first = false

		offsets[term] = cw.offset

		key, err := json.Marshal(term)
		if err != nil {
			return fmt.Errorf("merge: marshal term %q: %w", term, err)
		}
		val, err := json.Marshal(scored)
		if err != nil {
			return fmt.Errorf("merge: marshal scored postings for %q: %w", term, err)
		}
		if err := cw.writeString(string(key)); err != nil {
			return err
		}
		if err := cw.writeString(": "); err != nil {
			return err
		}
		if err := cw.writeString(string(val)); err != nil {
			return err
		}
		return nil
	}

	var currentTerm string
	var currentPostings []Posting
	haveCurrent := false

	for h.Len() > 0 {
		s := heap.Pop(h).(*chunkStream)
		term := s.head.Term
		postings := s.head.Postings

		if err := s.advance(); err != nil {
			return nil, err
		}
		if s.ok {
			heap.Push(h, s)
		}

		if haveCurrent && term == currentTerm {
			currentPostings = append(currentPostings, postings...)
			continue
		}
		if haveCurrent {
			if err := flushTerm(currentTerm, currentPostings); err != nil {
				return nil, err
			}
		}
		currentTerm = term
		currentPostings = append([]Posting(nil), postings...)
		haveCurrent = true
	}
	if haveCurrent {
		if err := flushTerm(currentTerm, currentPostings); err != nil {
			return nil, err
		}
	}

	if err := cw.writeString("\n}"); err != nil {
		return nil, err
	}
	if err := cw.w.Flush(); err != nil {
		return nil, fmt.Errorf("merge: flush final index: %w", err)
	}

	return offsets, nil
}

// scorePostings computes smoothed IDF and each posting's tf-idf score,
// then sorts the result by score descending (spec.md §4.3 Phase C steps
// 2-4). Ties break by document-id for determinism within a run.
func scorePostings(term string, postings []Posting, docFreq, numDocs int) []ScoredPosting {
	idf := math.Log(float64(numDocs+1)/float64(docFreq+1)) + 1

	scored := make([]ScoredPosting, len(postings))
	for i, p := range postings {
		scored[i] = ScoredPosting{
			DocID: p.DocID,
			TF:    p.TF,
			TFIDF: round2(p.TF * idf),
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].TFIDF != scored[j].TFIDF {
			return scored[i].TFIDF > scored[j].TFIDF
		}
		return scored[i].DocID < scored[j].DocID
	})
	return scored
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finalIndexPath(outDir string) string {
	return filepath.Join(outDir, "final_index.json")
}
