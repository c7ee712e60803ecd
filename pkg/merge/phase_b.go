package merge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// termPostings is one line of a Phase B chunk file.
type termPostings struct {
	Term     string    `json:"term"`
	Postings []Posting `json:"postings"`
}

// phaseB splits each partial index into chunks of at most m.ChunkSize
// terms, sorts each chunk lexicographically by term, and writes it as a
// JSON-lines file: one term per line (spec.md §4.3 Phase B). This bounds
// the in-memory sort to one chunk instead of the global vocabulary.
func (m *Merger) phaseB(partials []string) ([]string, error) {
	if err := os.MkdirAll(m.chunkDir, 0o755); err != nil {
		return nil, fmt.Errorf("merge: create chunk directory: %w", err)
	}

	var chunkFiles []string
	for partialIdx, path := range partials {
		var buf []termPostings
		chunkIdx := 0

		flush := func() error {
			if len(buf) == 0 {
				return nil
			}
			sort.Slice(buf, func(i, j int) bool { return buf[i].Term < buf[j].Term })
			chunkPath := filepath.Join(m.chunkDir, fmt.Sprintf("chunk_%d_%d.jsonl", partialIdx, chunkIdx))
			if err := writeChunk(chunkPath, buf); err != nil {
				return err
			}
			chunkFiles = append(chunkFiles, chunkPath)
			chunkIdx++
			buf = buf[:0]
			return nil
		}

		err := iteratePartialIndex(path, func(term string, postings []Posting) error {
			buf = append(buf, termPostings{Term: term, Postings: postings})
			if len(buf) >= m.ChunkSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return chunkFiles, nil
}

func writeChunk(path string, entries []termPostings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("merge: create chunk file %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("merge: write chunk entry %q: %w", e.Term, err)
		}
	}
	return w.Flush()
}
