// Package urlfilter canonicalizes corpus URLs and applies the closed-set
// blocklist from spec.md §6: binary/document extensions, low-value path
// substrings, and a handful of personal "~user/*.txt" patterns.
package urlfilter

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// blockedExtensions is the closed set of extensions spec.md §6 rejects,
// case-insensitively, at the end of the path or query. Alternations in the
// spec's regex (jpe?g, tiff?) are expanded into their literal forms here.
var blockedExtensions = map[string]bool{}

func init() {
	for _, ext := range strings.Fields(
		`css js bmp gif jpg jpeg ico img png tif tiff mid mp2 mp3 mp4 wav avi
		 mov mpeg ram m4v mkv ogg ogv pdf ps eps tex ppt pptx doc docx xls
		 xlsx names data dat exe bz2 tar msi bin 7z psd dmg iso epub dll cnf
		 tgz sha1 thmx mso arff rtf jar csv rm smil wmv swf wma zip rar gz
		 war apk mpg bam emx bib shar lif ppsx wvx odc pps xml fig dtd sql
		 java cp sh svg conf ipynb json scm ff py log model cc sas tsv map
		 ds_store`,
	) {
		blockedExtensions[ext] = true
	}
}

// personalTxtPattern matches the enumerated personal "~user/*.txt" paths and
// ".txt" paths containing "bibtex" that spec.md §6 calls out as low-value.
var personalTxtPattern = regexp.MustCompile(`(?i)(~wjohnson|~babaks|~jacobson|bibtex|~stasio|~kay|~seal).*\.txt$`)

// substringAC is a single Aho-Corasick automaton over the low-value path
// substrings, so the filter makes one pass over the URL instead of two
// strings.Contains calls.
var substringAC = ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
	AsciiCaseInsensitive: true,
	MatchOnlyWholeWords:  false,
	MatchKind:            ahocorasick.StandardMatch,
	DFA:                  false,
}).Build([]string{"raw-attachment", "public_data"})

// Canonicalize keeps scheme, host, path and query from rawURL and drops the
// fragment, per spec.md §3's definition of a Document's stable identifier.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlfilter: parse %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("urlfilter: %q has no scheme/host", rawURL)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// Reject reports whether the canonical URL should be excluded from
// ingestion, per the closed-set filter in spec.md §6.
func Reject(canonicalURL string) bool {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return true
	}

	pathAndQuery := u.Path
	if u.RawQuery != "" {
		pathAndQuery += "?" + u.RawQuery
	}
	lower := strings.ToLower(pathAndQuery)

	if ext, ok := extensionOf(lower); ok && blockedExtensions[ext] {
		return true
	}

	if personalTxtPattern.MatchString(lower) {
		return true
	}

	iter := substringAC.Iter(lower)
	if m := iter.Next(); m != nil {
		return true
	}

	return false
}

// extensionOf returns the trailing dotted extension of a path/query, if any.
func extensionOf(pathAndQuery string) (string, bool) {
	// Looks at the last dot of the combined path and query, so a query string
	// carrying e.g. "?file=x.pdf" is caught as well, matching the spec's
	// "path or query" wording.
	idx := strings.LastIndexByte(pathAndQuery, '.')
	if idx == -1 || idx == len(pathAndQuery)-1 {
		return "", false
	}
	ext := pathAndQuery[idx+1:]
	// Strip anything after the extension that isn't alnum (e.g. trailing
	// query separators already merged above should not occur, but guard
	// against stray punctuation).
	end := len(ext)
	for i, r := range ext {
		if !isAlnum(r) && r != '_' { // '_' kept so "ds_store" stays whole
			end = i
			break
		}
	}
	return ext[:end], end > 0
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z')
}
