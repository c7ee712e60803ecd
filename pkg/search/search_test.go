package search

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kittclouds/lexidex/internal/config"
	"github.com/kittclouds/lexidex/pkg/analyzer"
	"github.com/kittclouds/lexidex/pkg/index"
	"github.com/kittclouds/lexidex/pkg/merge"
)

// buildFixture runs an Indexer and Merger over two small HTML documents and
// returns an outDir ready for Searcher.Open.
func buildFixture(t *testing.T) string {
	t.Helper()

	corpusRoot := t.TempDir()
	outDir := t.TempDir()

	writeCorpusRecord(t, corpusRoot, "cs", "a.json", "https://cs.example.edu/intro",
		`<html><head><title>Introduction to Algorithms</title></head>
		 <body><p>a broad introduction to algorithms and data structures for undergraduates</p></body></html>`)
	writeCorpusRecord(t, corpusRoot, "cs", "b.json", "https://cs.example.edu/distributed",
		`<html><head><title>Distributed Systems</title></head>
		 <body><p>consensus protocols replication and fault tolerance in distributed systems</p></body></html>`)

	cfg := config.Default()
	acfg := analyzer.Config{StopWords: false}

	b := index.NewBuilder(outDir, cfg, acfg, nil)
	if err := b.Build(corpusRoot); err != nil {
		t.Fatalf("Build: %v", err)
	}

	m := merge.New(outDir, cfg.ChunkSize)
	if _, err := m.Merge(); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	return outDir
}

func writeCorpusRecord(t *testing.T, root, domain, name, url, content string) {
	t.Helper()
	dir := filepath.Join(root, domain)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	data, err := json.Marshal(map[string]string{"url": url, "content": content})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestSearchReturnsRelevantDocument(t *testing.T) {
	outDir := buildFixture(t)

	s, err := Open(outDir, config.Default(), analyzer.Config{StopWords: false})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	urls, err := s.Search("distributed consensus")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(urls) == 0 {
		t.Fatal("expected at least one result")
	}
	if urls[0] != "https://cs.example.edu/distributed" {
		t.Errorf("top result = %q, want the distributed-systems document", urls[0])
	}
}

func TestSearchUnknownTermYieldsNoResults(t *testing.T) {
	outDir := buildFixture(t)

	s, err := Open(outDir, config.Default(), analyzer.Config{StopWords: false})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	urls, err := s.Search("zzznonexistentzzz")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("expected no results, got %v", urls)
	}
}

func TestTruncateRespectsFloor(t *testing.T) {
	cfg := config.Default()
	cfg.PostingTruncationFloor = 4
	cfg.PostingTruncation = 0.5

	small := make([]merge.ScoredPosting, 3)
	if got := truncate(small, cfg); len(got) != 3 {
		t.Errorf("small list truncated to %d, want 3 (below floor)", len(got))
	}

	large := make([]merge.ScoredPosting, 10)
	if got := truncate(large, cfg); len(got) != 5 {
		t.Errorf("large list truncated to %d, want 5 (50%% of 10)", len(got))
	}
}
