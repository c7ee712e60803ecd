// Package config holds the tunables spec.md §6 calls out, with defaults
// matching the original source, overridable from LEXIDEX_-prefixed
// environment variables.
package config

import (
	"os"
	"strconv"
)

// Config bundles every indexing/search tunable into one value, mirroring the
// DefaultConfig() constructor idiom the teacher uses for its own scoring
// configs rather than reaching for a config-file library.
type Config struct {
	// MaxDocs is the number of accepted documents the Indexer holds in
	// memory before flushing the partial index to disk.
	MaxDocs int

	// HammingDistance is the near-duplicate threshold: two SimHash
	// fingerprints at or below this distance are the "same document".
	HammingDistance int

	// MaxFileSize is the largest corpus record, in bytes, the Indexer will
	// read before skipping it as oversize.
	MaxFileSize int64

	// ChunkSize is the number of terms per chunk during the Merger's
	// chunked-sort phase.
	ChunkSize int

	// TopK is the number of ranked URLs the Searcher returns.
	TopK int

	// PostingTruncation is the fraction of a posting list the Searcher
	// keeps at read time (e.g. 0.25 keeps the top 25%).
	PostingTruncation float64

	// PostingTruncationFloor is the posting-list length below which no
	// truncation is applied.
	PostingTruncationFloor int

	// StopWords enables the English stop-word filter in the Analyzer. Off
	// reproduces spec.md's literal token set.
	StopWords bool
}

// Default returns the tunables used throughout spec.md's examples and
// scenarios, unless overridden by environment variables.
func Default() Config {
	c := Config{
		MaxDocs:                10000,
		HammingDistance:        4,
		MaxFileSize:            1000 * 1024,
		ChunkSize:              10000,
		TopK:                   5,
		PostingTruncation:      0.25,
		PostingTruncationFloor: 100,
		StopWords:              true,
	}
	c.applyEnv()
	return c
}

func (c *Config) applyEnv() {
	if v, ok := getenvInt("LEXIDEX_MAX_DOCS"); ok {
		c.MaxDocs = v
	}
	if v, ok := getenvInt("LEXIDEX_HAMMING_DISTANCE"); ok {
		c.HammingDistance = v
	}
	if v, ok := getenvInt64("LEXIDEX_MAX_FILE_SIZE"); ok {
		c.MaxFileSize = v
	}
	if v, ok := getenvInt("LEXIDEX_CHUNK_SIZE"); ok {
		c.ChunkSize = v
	}
	if v, ok := getenvInt("LEXIDEX_TOP_K"); ok {
		c.TopK = v
	}
	if v, ok := getenvFloat("LEXIDEX_POSTING_TRUNCATION"); ok {
		c.PostingTruncation = v
	}
	if v, ok := getenvInt("LEXIDEX_POSTING_TRUNCATION_FLOOR"); ok {
		c.PostingTruncationFloor = v
	}
	if v, ok := os.LookupEnv("LEXIDEX_STOPWORDS"); ok {
		c.StopWords = v != "0" && v != "false"
	}
}

func getenvInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func getenvInt64(key string) (int64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func getenvFloat(key string) (float64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
