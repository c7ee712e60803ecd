// Package analyzer turns a raw HTML document into a weighted token stream:
// field-classified text, synonym substitution, length/entropy filtering,
// Porter stemming, n-gram emission, a SimHash fingerprint for near-duplicate
// detection, and the normalized term-frequency mapping the Indexer stores.
package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/orsinium-labs/stopwords"
	"golang.org/x/net/html"

	"github.com/kittclouds/lexidex/pkg/corpuserr"
)

// Field weights from spec.md §4.1. Weights are additive per term within a
// document: a term appearing in both the title and the body accumulates
// both weights.
const (
	WeightAnchor  = 5.0
	WeightTitle   = 5.0
	WeightHeading = 3.0
	WeightBold    = 2.0
	WeightBody    = 1.0
)

// minTokenLength and maxNumericLength implement spec.md §4.1 step 3: drop
// tokens of length <= 2, and purely numeric tokens longer than 5 digits.
const (
	minTokenLength   = 2
	maxNumericLength = 5
	lowEntropyRatio  = 0.05
	bigramFactor     = 1.25
	trigramFactor    = 1.5
	trigramDivisor   = 2.0 // preserved bug: spec.md averages 3 weights over 2, not 3
)

// synonyms is the closed substitution table applied before stemming.
var synonyms = map[string]string{
	"crista": "cristina",
	"cs":     "compsci",
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+`)
var numericPattern = regexp.MustCompile(`^[0-9]+$`)

// Config tunes the Analyzer. The zero value disables the stop-word filter;
// DefaultConfig enables it.
type Config struct {
	// StopWords enables the English stop-word filter (SPEC_FULL §6.1,
	// REDESIGN). Disable to reproduce spec.md's literal token set.
	StopWords bool
}

// DefaultConfig returns the Analyzer configuration spec.md's corpus is
// indexed with.
func DefaultConfig() Config {
	return Config{StopWords: true}
}

// Token is a single (term, weight) pair in a document's weighted token
// stream. Terms joined by "_" are bigrams/trigrams; all others are unigram
// stems.
type Token struct {
	Term   string
	Weight float64
}

// Analyze parses htmlBytes, extracts field-weighted visible text, and
// returns the document's full weighted token stream (unigrams, bigrams,
// trigrams across every field). Returns corpuserr.ErrHTMLParseFailed or
// corpuserr.ErrEmptyDocument when the document carries no usable text.
func Analyze(htmlBytes []byte, cfg Config) ([]Token, error) {
	fields, err := extractFields(htmlBytes)
	if err != nil {
		return nil, err
	}
	if allFieldsEmpty(fields) {
		return nil, corpuserr.ErrEmptyDocument
	}

	var stream []Token
	for _, f := range fields {
		toks := tokenizeField(f.text, f.weight, cfg)
		stream = append(stream, toks...)
	}
	return stream, nil
}

type weightedField struct {
	text   string
	weight float64
}

func allFieldsEmpty(fields []weightedField) bool {
	for _, f := range fields {
		if strings.TrimSpace(f.text) != "" {
			return false
		}
	}
	return true
}

// extractFields walks the parsed DOM and buckets visible text into the four
// disjoint field classes of spec.md §4.1. Each element's text is emitted
// exactly once, under the most specific field class its nearest
// field-bearing ancestor establishes.
func extractFields(htmlBytes []byte) ([]weightedField, error) {
	doc, err := html.Parse(strings.NewReader(string(htmlBytes)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", corpuserr.ErrHTMLParseFailed, err)
	}

	var fields []weightedField
	var walk func(n *html.Node, weight float64)
	walk = func(n *html.Node, weight float64) {
		if n.Type == html.TextNode {
			if strings.TrimSpace(n.Data) != "" {
				fields = append(fields, weightedField{text: n.Data, weight: weight})
			}
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "a":
				if hasHrefAttr(n) {
					weight = WeightAnchor
				}
			case "title":
				weight = WeightTitle
			case "h1", "h2", "h3":
				weight = WeightHeading
			case "b", "strong":
				weight = WeightBold
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, weight)
		}
	}
	walk(doc, WeightBody)

	return fields, nil
}

func hasHrefAttr(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "href" {
			return true
		}
	}
	return false
}

// tokenizeField implements spec.md §4.1's tokenize(text, weight) pipeline.
// Returns nil if the field is rejected as low-entropy (step 4).
func tokenizeField(text string, weight float64, cfg Config) []Token {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}

	// Step 2: synonym substitution.
	substituted := make([]string, len(raw))
	for i, tok := range raw {
		if repl, ok := synonyms[tok]; ok {
			substituted[i] = repl
		} else {
			substituted[i] = tok
		}
	}

	// REDESIGN: optional stop-word filter, applied before the length/numeric
	// filters (SPEC_FULL §6.1).
	filtered := substituted
	if cfg.StopWords {
		filtered = filtered[:0]
		for _, tok := range substituted {
			if !stopwords.English.Has(tok) {
				filtered = append(filtered, tok)
			}
		}
	}

	// Step 3: drop tokens of length <= 2 and purely-numeric tokens of
	// length > 5.
	kept := make([]string, 0, len(filtered))
	for _, tok := range filtered {
		if len(tok) <= minTokenLength {
			continue
		}
		if len(tok) > maxNumericLength && numericPattern.MatchString(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return nil
	}

	// Step 4: low-entropy rejection.
	unique := make(map[string]struct{}, len(kept))
	for _, tok := range kept {
		unique[tok] = struct{}{}
	}
	if float64(len(unique))/float64(len(kept)) < lowEntropyRatio {
		return nil
	}

	// Step 5: stem.
	stems := make([]string, len(kept))
	for i, tok := range kept {
		stems[i] = porterstemmer.StemString(tok)
	}

	tokens := make([]Token, 0, len(stems)*2)
	for _, s := range stems {
		tokens = append(tokens, Token{Term: s, Weight: weight})
	}

	// Step 6: bigrams.
	for i := 0; i+1 < len(stems); i++ {
		term := stems[i] + "_" + stems[i+1]
		w := ((weight + weight) / 2.0) * bigramFactor
		tokens = append(tokens, Token{Term: term, Weight: w})
	}

	// Step 7: trigrams (divisor intentionally 2, not 3 -- see spec.md Design
	// Notes: this mirrors a preserved quirk in the original implementation).
	for i := 0; i+2 < len(stems); i++ {
		term := stems[i] + "_" + stems[i+1] + "_" + stems[i+2]
		w := ((weight + weight + weight) / trigramDivisor) * trigramFactor
		tokens = append(tokens, Token{Term: term, Weight: w})
	}

	return tokens
}
