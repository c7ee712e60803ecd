package index

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kittclouds/lexidex/internal/checkpoint"
	"github.com/kittclouds/lexidex/internal/config"
	"github.com/kittclouds/lexidex/pkg/analyzer"
	"github.com/kittclouds/lexidex/pkg/corpuserr"
	"github.com/kittclouds/lexidex/pkg/urlfilter"
)

// record is the shape of a corpus file: {"url": ..., "content": ...}.
// Additional fields are ignored (spec.md §6).
type record struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Stats tallies the outcome of a Build run. Each outcome is also written to
// the checkpoint journal when one is supplied.
type Stats struct {
	Accepted    int
	Duplicate   int
	Filtered    int
	Oversize    int
	Unreadable  int
	ParseFailed int
	Empty       int
	LowEntropy  int
}

// Builder is the explicit, passed-by-reference value replacing the source
// Indexer's process-wide mutable state (spec.md §9): the current partial
// index, the document-id counter, and the fingerprint set all live here.
type Builder struct {
	cfg        config.Config
	acfg       analyzer.Config
	outDir     string
	journal    *checkpoint.Store
	partial    *PartialIndex
	fps        []uint64
	urlToID    map[string]int
	nextID     int
	partialK   int
	corpusRoot string
	Stats      Stats
}

// NewBuilder returns a Builder that writes partial indexes and the URL->id
// map under outDir. journal may be nil to skip ingest journaling.
func NewBuilder(outDir string, cfg config.Config, acfg analyzer.Config, journal *checkpoint.Store) *Builder {
	return &Builder{
		cfg:     cfg,
		acfg:    acfg,
		outDir:  outDir,
		journal: journal,
		partial: NewPartialIndex(),
		urlToID: make(map[string]int),
	}
}

// Build enumerates the two-level corpus layout <root>/<domain>/<record>.json
// (spec.md §4.2, §6) and runs every record through canonicalization,
// filtering, analysis, deduplication, and partial-index accumulation.
func (b *Builder) Build(corpusRoot string) error {
	b.corpusRoot = corpusRoot

	domains, err := os.ReadDir(corpusRoot)
	if err != nil {
		return fmt.Errorf("index: read corpus root: %w", err)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i].Name() < domains[j].Name() })

	for _, d := range domains {
		if !d.IsDir() {
			continue
		}
		if err := b.buildDomain(d.Name()); err != nil {
			return err
		}
	}

	if !b.partial.Empty() {
		if err := b.flushPartial(); err != nil {
			return err
		}
	}

	return b.writeDocIDMapping()
}

func (b *Builder) buildDomain(domain string) error {
	domainDir := filepath.Join(b.corpusRoot, domain)
	entries, err := os.ReadDir(domainDir)
	if err != nil {
		return fmt.Errorf("index: read domain %q: %w", domain, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := b.processRecord(domain, e); err != nil {
			return err
		}
	}
	return nil
}

// processRecord runs one corpus file through spec.md §4.2 steps 1-6. Every
// rejection is counted and journaled; none of them abort the run. Only a
// partial-index flush failure propagates, since that is an I/O fault rather
// than an expected per-document rejection.
func (b *Builder) processRecord(domain string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		b.reject(domain, entry.Name(), "", checkpoint.StatusUnreadable, corpuserr.ErrCorpusRecordUnreadable.Error())
		return nil
	}
	if info.Size() > b.cfg.MaxFileSize {
		b.reject(domain, entry.Name(), "", checkpoint.StatusOversize, corpuserr.ErrDocumentOversize.Error())
		return nil
	}

	rec, err := b.readRecord(domain, entry.Name())
	if err != nil {
		b.reject(domain, entry.Name(), "", checkpoint.StatusUnreadable, err.Error())
		return nil
	}

	canonical, err := urlfilter.Canonicalize(rec.URL)
	if err != nil {
		b.reject(domain, entry.Name(), rec.URL, checkpoint.StatusFiltered, corpuserr.ErrInvalidURL.Error())
		return nil
	}
	if urlfilter.Reject(canonical) {
		b.reject(domain, entry.Name(), canonical, checkpoint.StatusFiltered, corpuserr.ErrInvalidURL.Error())
		return nil
	}

	stream, err := analyzer.Analyze([]byte(rec.Content), b.acfg)
	if err != nil {
		status := checkpoint.StatusParseFailed
		if err == corpuserr.ErrEmptyDocument {
			status = checkpoint.StatusEmpty
		}
		b.reject(domain, entry.Name(), canonical, status, err.Error())
		return nil
	}
	if len(stream) == 0 {
		// Every field tokenized to nothing (entropy-rejected, all stop-words,
		// or all sub-minimum-length tokens): the document carries visible
		// text but yields no terms, so it must not be counted into N.
		b.reject(domain, entry.Name(), canonical, checkpoint.StatusLowEntropy, corpuserr.ErrLowEntropyContent.Error())
		return nil
	}

	fp := analyzer.Fingerprint(stream)
	if b.isDuplicate(fp) {
		b.reject(domain, entry.Name(), canonical, checkpoint.StatusDuplicate, corpuserr.ErrNearDuplicate.Error())
		return nil
	}

	tf := analyzer.TermFrequencies(stream)
	docID := b.assignDocID(canonical)
	for term, weight := range tf {
		b.partial.Add(term, docID, weight)
	}
	b.partial.DocCount++
	b.fps = append(b.fps, fp)
	b.Stats.Accepted++
	b.journalRecord(domain, entry.Name(), canonical, checkpoint.StatusAccepted, docID, "")

	if b.partial.DocCount >= b.cfg.MaxDocs {
		return b.flushPartial()
	}
	return nil
}

func (b *Builder) readRecord(domain, name string) (record, error) {
	data, err := os.ReadFile(filepath.Join(b.corpusRoot, domain, name))
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, fmt.Errorf("%w: %v", corpuserr.ErrCorpusRecordUnreadable, err)
	}
	return rec, nil
}

func (b *Builder) isDuplicate(fp uint64) bool {
	for _, existing := range b.fps {
		if analyzer.HammingDistance(fp, existing) <= b.cfg.HammingDistance {
			return true
		}
	}
	return false
}

func (b *Builder) assignDocID(canonicalURL string) int {
	if id, ok := b.urlToID[canonicalURL]; ok {
		return id
	}
	id := b.nextID
	b.urlToID[canonicalURL] = id
	b.nextID++
	return id
}

func (b *Builder) flushPartial() error {
	path := filepath.Join(b.outDir, "partial_indexes", fmt.Sprintf("partial_index_%d.json", b.partialK))
	if err := b.partial.Flush(path); err != nil {
		return err
	}
	b.partialK++
	return nil
}

func (b *Builder) writeDocIDMapping() error {
	if err := os.MkdirAll(b.outDir, 0o755); err != nil {
		return fmt.Errorf("index: create output directory: %w", err)
	}
	path := filepath.Join(b.outDir, "doc_id_mapping.json")
	data, err := json.MarshalIndent(b.urlToID, "", "  ")
	if err != nil {
		return fmt.Errorf("index: marshal doc-id mapping: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("index: write doc-id mapping: %w", err)
	}
	return nil
}

func (b *Builder) reject(domain, name, url string, status checkpoint.Status, reason string) {
	switch status {
	case checkpoint.StatusUnreadable:
		b.Stats.Unreadable++
	case checkpoint.StatusOversize:
		b.Stats.Oversize++
	case checkpoint.StatusFiltered:
		b.Stats.Filtered++
	case checkpoint.StatusParseFailed:
		b.Stats.ParseFailed++
	case checkpoint.StatusEmpty:
		b.Stats.Empty++
	case checkpoint.StatusLowEntropy:
		b.Stats.LowEntropy++
	case checkpoint.StatusDuplicate:
		b.Stats.Duplicate++
	}
	b.journalRecord(domain, name, url, status, -1, reason)
}

func (b *Builder) journalRecord(domain, name, url string, status checkpoint.Status, docID int, reason string) {
	if b.journal == nil {
		return
	}
	_ = b.journal.Record(domain, name, url, status, docID, reason)
}
