package merge

// phaseA streams every partial index once, counting postings per term
// across all partials: df_t without holding any posting list fully in
// memory (spec.md §4.3 Phase A).
func (m *Merger) phaseA(partials []string) (map[string]int, error) {
	df := make(map[string]int)
	for _, path := range partials {
		err := iteratePartialIndex(path, func(term string, postings []Posting) error {
			df[term] += len(postings)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return df, nil
}
