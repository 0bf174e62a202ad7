// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package locator finds source URLs in free text and merges per-section
// locator lists into one ordered, duplicate-free list.
package locator

import (
	"crypto/sha256"
	"fmt"
	"iter"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// pattern matches http(s) URLs whose host and path use [A-Za-z0-9._-].
// Query strings and fragments are not part of the grammar.
var pattern = regexp.MustCompile(`https?://[A-Za-z0-9._-]+(?:/[A-Za-z0-9._-]*)*`)

// Extract returns the locators in text, left to right and non-overlapping.
// The sequence is lazy and can be ranged over any number of times with the
// same result. Text without locators yields nothing.
func Extract(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		pos := 0
		for pos < len(text) {
			loc := pattern.FindStringIndex(text[pos:])
			if loc == nil {
				return
			}
			start, end := pos+loc[0], pos+loc[1]
			if end <= pos {
				return
			}
			pos = end
			if !yield(text[start:end]) {
				return
			}
		}
	}
}

// ExtractAll collects Extract into a slice. It returns nil when text has
// no locators.
func ExtractAll(text string) []string {
	var out []string
	for l := range Extract(text) {
		out = append(out, l)
	}
	return out
}

// Merge flattens per-section locator lists into one list holding each
// distinct locator once, in order of first appearance. Comparison is exact:
// "https://a.com" and "https://a.com/" are different locators.
func Merge(sections [][]string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, section := range sections {
		for _, l := range section {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			merged = append(merged, l)
		}
	}
	return merged
}

// Label returns a short filesystem-safe name for a locator: the last path
// element without its extension, or "url-<hash>" when the path is empty.
func Label(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return hashLabel(locator)
	}
	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return hashLabel(locator)
	}
	return base
}

func hashLabel(locator string) string {
	h := sha256.Sum256([]byte(locator))
	return fmt.Sprintf("url-%x", h[:8])
}

// HasPDFSuffix reports whether the locator's path ends in ".pdf", ignoring case.
func HasPDFSuffix(locator string) bool {
	p := locator
	if u, err := url.Parse(locator); err == nil {
		p = u.Path
	}
	return strings.HasSuffix(strings.ToLower(p), ".pdf")
}
