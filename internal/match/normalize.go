package match

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// punctReplacer strips the punctuation that scanners and data entry disagree
// on. Hyphens are removed rather than spaced so "J.R." and "O'Brien" keep
// their token counts; compound surnames recorded with and without a hyphen
// therefore normalize differently, which is a known false-negative source.
var punctReplacer = strings.NewReplacer(
	"'", "",
	"’", "",
	"‘", "",
	".", "",
	",", "",
	"\"", "",
	"-", "",
)

// Normalize standardizes a person name for matching by:
//  1. Trimming whitespace
//  2. Converting to uppercase
//  3. Stripping punctuation (apostrophes, hyphens, periods, commas)
//  4. Collapsing internal whitespace runs (spaces, tabs, newlines) into
//     single spaces
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = strings.ToUpper(name)
	name = punctReplacer.Replace(name)
	name = whitespaceRe.ReplaceAllString(name, " ")

	return strings.TrimSpace(name)
}
