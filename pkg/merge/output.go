package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// writeBookkeeping persists the offset directory with the reserved
// "total_docs" key (spec.md §6).
func (m *Merger) writeBookkeeping(offsets map[string]int64, numDocs int) error {
	out := make(map[string]int64, len(offsets)+1)
	for term, off := range offsets {
		out[term] = off
	}
	out["total_docs"] = int64(numDocs)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("merge: marshal bookkeeping: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.OutDir, "bookkeeping.json"), data, 0o644); err != nil {
		return fmt.Errorf("merge: write bookkeeping.json: %w", err)
	}
	return nil
}

// writeReport writes the three-line summary report.txt names (spec.md §6).
func (m *Merger) writeReport(numDocs, numTerms int) (Report, error) {
	info, err := os.Stat(finalIndexPath(m.OutDir))
	if err != nil {
		return Report{}, fmt.Errorf("merge: stat final index: %w", err)
	}
	sizeKB := float64(info.Size()) / 1024.0

	report := Report{
		NumDocuments:   numDocs,
		NumUniqueTerms: numTerms,
		IndexSizeKB:    sizeKB,
	}

	text := fmt.Sprintf("Number of Documents: %d\nNumber of Unique Tokens: %d\nTotal Index Size (KB): %.2f\n",
		report.NumDocuments, report.NumUniqueTerms, report.IndexSizeKB)
	if err := os.WriteFile(filepath.Join(m.OutDir, "report.txt"), []byte(text), 0o644); err != nil {
		return Report{}, fmt.Errorf("merge: write report.txt: %w", err)
	}
	return report, nil
}
