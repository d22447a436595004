package resolve

import (
	"strings"
	"unicode"

	"github.com/sells-group/docintake/internal/match"
)

// Candidate window bounds. Two tokens covers "First Last", four covers a
// first/middle/last plus one stray token from OCR.
const (
	minNameTokens = 2
	maxNameTokens = 4
)

// digitsOnly strips everything but ASCII digits, so "123-45-6789" and
// "123 45 6789" compare equal.
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// nameCandidates lifts name-like token windows out of raw page text. Each
// line is normalized and split into runs of purely alphabetic tokens (digits
// and symbols break a run); every contiguous window of minNameTokens to
// maxNameTokens inside a run becomes a candidate. Duplicates are dropped.
//
// Garbled OCR lines simply yield windows that match nothing; extraction
// never fails.
func nameCandidates(pageText string) []string {
	seen := make(map[string]struct{})
	var out []string

	addWindows := func(run []string) {
		for size := minNameTokens; size <= maxNameTokens && size <= len(run); size++ {
			for start := 0; start+size <= len(run); start++ {
				cand := strings.Join(run[start:start+size], " ")
				if _, dup := seen[cand]; dup {
					continue
				}
				seen[cand] = struct{}{}
				out = append(out, cand)
			}
		}
	}

	for _, line := range strings.Split(pageText, "\n") {
		norm := match.Normalize(line)
		if norm == "" {
			continue
		}
		var run []string
		for _, tok := range strings.Fields(norm) {
			if isAlphaToken(tok) {
				run = append(run, tok)
				continue
			}
			addWindows(run)
			run = run[:0]
		}
		addWindows(run)
	}

	return out
}

func isAlphaToken(tok string) bool {
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return tok != ""
}
