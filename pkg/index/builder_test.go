package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kittclouds/lexidex/internal/config"
	"github.com/kittclouds/lexidex/pkg/analyzer"
)

func writeRecord(t *testing.T, dir, domain, name, url, content string) {
	t.Helper()
	domainDir := filepath.Join(dir, domain)
	if err := os.MkdirAll(domainDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	data, err := json.Marshal(map[string]string{"url": url, "content": content})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(domainDir, name), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestBuildAssignsDenseDocIDsAndFlushes(t *testing.T) {
	corpusRoot := t.TempDir()
	outDir := t.TempDir()

	writeRecord(t, corpusRoot, "cs", "0001.json", "https://cs.example.edu/alpha",
		`<html><head><title>Alpha Course</title></head><body><p>introductory computer science material about algorithms and complexity theory analysis</p></body></html>`)
	writeRecord(t, corpusRoot, "cs", "0002.json", "https://cs.example.edu/beta",
		`<html><head><title>Beta Course</title></head><body><p>graduate seminar on distributed systems consensus protocols and replication strategies</p></body></html>`)
	writeRecord(t, corpusRoot, "cs", "0003.json", "https://cs.example.edu/image.png", "")

	cfg := config.Default()
	cfg.MaxDocs = 1 // force a flush after every accepted document

	b := NewBuilder(outDir, cfg, analyzer.Config{StopWords: false}, nil)
	if err := b.Build(corpusRoot); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if b.Stats.Accepted != 2 {
		t.Errorf("Accepted = %d, want 2", b.Stats.Accepted)
	}
	if b.Stats.Filtered != 1 {
		t.Errorf("Filtered = %d, want 1 (image.png blocked by extension)", b.Stats.Filtered)
	}

	mappingData, err := os.ReadFile(filepath.Join(outDir, "doc_id_mapping.json"))
	if err != nil {
		t.Fatalf("read doc_id_mapping.json: %v", err)
	}
	var mapping map[string]int
	if err := json.Unmarshal(mappingData, &mapping); err != nil {
		t.Fatalf("unmarshal doc_id_mapping.json: %v", err)
	}
	if len(mapping) != 2 {
		t.Fatalf("mapping has %d entries, want 2", len(mapping))
	}
	seen := map[int]bool{}
	for _, id := range mapping {
		seen[id] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("doc-ids = %v, want exactly {0,1}", mapping)
	}

	entries, err := os.ReadDir(filepath.Join(outDir, "partial_indexes"))
	if err != nil {
		t.Fatalf("read partial_indexes: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("partial index file count = %d, want 2 (MaxDocs=1 forces a flush per doc)", len(entries))
	}
}

func TestBuildSkipsOversizeRecord(t *testing.T) {
	corpusRoot := t.TempDir()
	outDir := t.TempDir()

	writeRecord(t, corpusRoot, "cs", "big.json", "https://cs.example.edu/big",
		`<html><body><p>small content</p></body></html>`)

	cfg := config.Default()
	cfg.MaxFileSize = 1 // anything on disk exceeds one byte

	b := NewBuilder(outDir, cfg, analyzer.DefaultConfig(), nil)
	if err := b.Build(corpusRoot); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.Stats.Oversize != 1 {
		t.Errorf("Oversize = %d, want 1", b.Stats.Oversize)
	}
	if b.Stats.Accepted != 0 {
		t.Errorf("Accepted = %d, want 0", b.Stats.Accepted)
	}
}

func TestBuildRejectsLowEntropyDocument(t *testing.T) {
	corpusRoot := t.TempDir()
	outDir := t.TempDir()

	// Every token is a stop-word or a two-letter fragment, so the body field
	// tokenizes to nothing even though it carries visible text.
	writeRecord(t, corpusRoot, "news", "empty.json", "https://news.example.com/empty",
		`<html><body><p>an of to is it by an or at so on</p></body></html>`)

	cfg := config.Default()
	b := NewBuilder(outDir, cfg, analyzer.Config{StopWords: true}, nil)
	if err := b.Build(corpusRoot); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.Stats.LowEntropy != 1 {
		t.Errorf("LowEntropy = %d, want 1", b.Stats.LowEntropy)
	}
	if b.Stats.Accepted != 0 {
		t.Errorf("Accepted = %d, want 0 (low-entropy document must not count into N)", b.Stats.Accepted)
	}
}

func TestBuildRejectsNearDuplicate(t *testing.T) {
	corpusRoot := t.TempDir()
	outDir := t.TempDir()

	body := `<html><body><p>the quick brown fox jumps over the lazy dog repeatedly every single afternoon</p></body></html>`
	writeRecord(t, corpusRoot, "news", "a.json", "https://news.example.com/a", body)
	writeRecord(t, corpusRoot, "news", "b.json", "https://news.example.com/b", body)

	cfg := config.Default()
	b := NewBuilder(outDir, cfg, analyzer.Config{StopWords: false}, nil)
	if err := b.Build(corpusRoot); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.Stats.Accepted != 1 {
		t.Errorf("Accepted = %d, want 1", b.Stats.Accepted)
	}
	if b.Stats.Duplicate != 1 {
		t.Errorf("Duplicate = %d, want 1", b.Stats.Duplicate)
	}
}
