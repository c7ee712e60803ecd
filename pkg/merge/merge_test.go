package merge

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kittclouds/lexidex/pkg/index"
)

func writeDocIDMapping(t *testing.T, dir string, n int) {
	t.Helper()
	mapping := make(map[string]int, n)
	for i := 0; i < n; i++ {
		mapping[filepath_url(i)] = i
	}
	data, err := json.Marshal(mapping)
	if err != nil {
		t.Fatalf("marshal mapping: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "doc_id_mapping.json"), data, 0o644); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
}

func filepath_url(i int) string {
	return "https://example.test/doc" + string(rune('a'+i))
}

func TestMergeProducesSeekableFinalIndex(t *testing.T) {
	outDir := t.TempDir()
	writeDocIDMapping(t, outDir, 3)

	p1 := index.NewPartialIndex()
	p1.Add("alpha", 0, 90.0)
	p1.Add("alpha", 1, 10.0)
	p1.Add("beta", 0, 50.0)
	p1.DocCount = 2
	if err := p1.Flush(filepath.Join(outDir, "partial_indexes", "partial_index_0.json")); err != nil {
		t.Fatalf("flush p1: %v", err)
	}

	p2 := index.NewPartialIndex()
	p2.Add("alpha", 2, 40.0)
	p2.Add("gamma", 2, 100.0)
	p2.DocCount = 1
	if err := p2.Flush(filepath.Join(outDir, "partial_indexes", "partial_index_1.json")); err != nil {
		t.Fatalf("flush p2: %v", err)
	}

	m := New(outDir, 2) // force multiple chunks
	report, err := m.Merge()
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.NumDocuments != 3 {
		t.Errorf("NumDocuments = %d, want 3", report.NumDocuments)
	}
	if report.NumUniqueTerms != 3 {
		t.Errorf("NumUniqueTerms = %d, want 3 (alpha, beta, gamma)", report.NumUniqueTerms)
	}

	bkData, err := os.ReadFile(filepath.Join(outDir, "bookkeeping.json"))
	if err != nil {
		t.Fatalf("read bookkeeping.json: %v", err)
	}
	var offsets map[string]int64
	if err := json.Unmarshal(bkData, &offsets); err != nil {
		t.Fatalf("unmarshal bookkeeping.json: %v", err)
	}
	if offsets["total_docs"] != 3 {
		t.Errorf("total_docs = %d, want 3", offsets["total_docs"])
	}

	f, err := os.Open(filepath.Join(outDir, "final_index.json"))
	if err != nil {
		t.Fatalf("open final_index.json: %v", err)
	}
	defer f.Close()

	for _, term := range []string{"alpha", "beta", "gamma"} {
		off, ok := offsets[term]
		if !ok {
			t.Fatalf("no offset recorded for %q", term)
		}
		if _, err := f.Seek(off, 0); err != nil {
			t.Fatalf("seek to %q: %v", term, err)
		}
		line, err := bufio.NewReader(f).ReadString('\n')
		if err != nil && line == "" {
			t.Fatalf("read line at %q's offset: %v", term, err)
		}
		line = strings.TrimRight(line, ",\n")
		wrapped := "{" + line + "}"
		var decoded map[string][]ScoredPosting
		if err := json.Unmarshal([]byte(wrapped), &decoded); err != nil {
			t.Fatalf("offset for %q did not yield valid JSON (%q): %v", term, wrapped, err)
		}
		if _, ok := decoded[term]; !ok {
			t.Fatalf("offset for %q decoded to a different key: %v", term, decoded)
		}
	}

	// alpha has df=3 (docs 0,1,2), so idf = ln(4/4)+1 = 1; doc 0's tf-idf = 90.
	alphaOff := offsets["alpha"]
	f.Seek(alphaOff, 0)
	line, _ := bufio.NewReader(f).ReadString('\n')
	line = strings.TrimRight(line, ",\n")
	var decoded map[string][]ScoredPosting
	json.Unmarshal([]byte("{"+line+"}"), &decoded)
	postings := decoded["alpha"]
	if len(postings) != 3 {
		t.Fatalf("alpha postings = %d, want 3", len(postings))
	}
	if postings[0].DocID != 0 || math.Abs(postings[0].TFIDF-90.0) > 0.01 {
		t.Errorf("alpha top posting = %+v, want doc 0 with tf-idf ~90.0", postings[0])
	}
}
