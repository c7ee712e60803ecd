package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Flush serializes p to path as a JSON object with terms in ascending
// lexicographic order (spec.md §4.2 step 7), then resets p for the next
// accumulation cycle. encoding/json does not preserve map key order, so
// the object is built by hand, one term per line, mirroring the line-
// oriented contract the Merger's chunk and bookkeeping files depend on.
func (p *PartialIndex) Flush(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("index: create partial index directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("index: create partial index file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	terms := make([]string, 0, len(p.Postings))
	for t := range p.Postings {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	if _, err := w.WriteString("{"); err != nil {
		return err
	}
	for i, term := range terms {
		key, err := json.Marshal(term)
		if err != nil {
			return fmt.Errorf("index: marshal term %q: %w", term, err)
		}
		val, err := json.Marshal(p.Postings[term])
		if err != nil {
			return fmt.Errorf("index: marshal postings for %q: %w", term, err)
		}
		if i > 0 {
			if _, err := w.WriteString(",\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(key); err != nil {
			return err
		}
		if _, err := w.WriteString(":"); err != nil {
			return err
		}
		if _, err := w.Write(val); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("}"); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("index: flush partial index file: %w", err)
	}

	p.Reset()
	return nil
}
