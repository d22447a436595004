package match

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/sells-group/docintake/internal/model"
)

// Confidence levels. These values are load-bearing: downstream acceptance,
// UI display, and historical data all assume this exact ladder.
const (
	// ConfidenceExact: identical normalized names, or identical components.
	ConfidenceExact = 100
	// ConfidenceInitial: one middle is the initial of the other.
	ConfidenceInitial = 95
	// ConfidenceMissingMiddle: exactly one side has no middle name.
	ConfidenceMissingMiddle = 95
	// ConfidenceMiddleConflict: both middles present but different.
	ConfidenceMiddleConflict = 85

	// MinConfidence is the acceptance floor for flexible matches.
	MinConfidence = 85

	// reversedCap bounds any match found only after reversing token order.
	reversedCap = 90
	// reversedAbbrevConfidence covers reversal plus a single-letter first name.
	reversedAbbrevConfidence = 85
	// reversedVarianceConfidence covers reversal plus one misspelled component.
	reversedVarianceConfidence = 85

	// maxVarianceDistance is the edit-distance ceiling for the spelling
	// variance rule.
	maxVarianceDistance = 2
)

// Match reasons, stable strings surfaced in classification output.
const (
	ReasonExact            = "exact match"
	ReasonInitial          = "initial expansion"
	ReasonMissingMiddle    = "missing middle"
	ReasonMiddleConflict   = "different middle"
	ReasonReversed         = "reversed order"
	ReasonReversedAbbrev   = "reversed order, abbreviated first"
	ReasonReversedVariance = "reversed order, spelling variance"
	ReasonNoMatch          = "first/last mismatch"
	ReasonEmpty            = "empty name"
)

// Components compares two parsed names. First and last names must match
// exactly; the middle names grade the result:
//
//	both equal (or both absent)     -> 100
//	one is the initial of the other -> 95
//	exactly one side has a middle   -> 95
//	both present, different         -> 85
//
// A first or last name mismatch is never a match, whatever the middles say.
func Components(a, b model.ParsedName) model.MatchResult {
	if a.First != b.First || a.Last != b.Last {
		return model.MatchResult{Reason: ReasonNoMatch}
	}

	switch {
	case a.Middle == b.Middle:
		return model.MatchResult{IsMatch: true, Confidence: ConfidenceExact, Reason: ReasonExact}
	case initialExpansion(a.Middle, b.Middle):
		return model.MatchResult{IsMatch: true, Confidence: ConfidenceInitial, Reason: ReasonInitial}
	case a.Middle == "" || b.Middle == "":
		return model.MatchResult{IsMatch: true, Confidence: ConfidenceMissingMiddle, Reason: ReasonMissingMiddle}
	default:
		return model.MatchResult{IsMatch: true, Confidence: ConfidenceMiddleConflict, Reason: ReasonMiddleConflict}
	}
}

// FlexibleName matches a stored holder name against a candidate lifted from
// page text. Identical normalized strings short-circuit at 100. Otherwise the
// names are parsed and compared component-wise, then retried with the
// candidate's token order reversed to absorb "LAST FIRST" OCR layouts.
// Reversed matches are capped at 90; reversal combined with an abbreviated
// first name or a small spelling variance lands at 85. Anything below the 85
// floor is rejected.
func FlexibleName(stored, candidate string) model.MatchResult {
	ns, nc := Normalize(stored), Normalize(candidate)
	if ns == "" || nc == "" {
		return model.MatchResult{Reason: ReasonEmpty}
	}
	if ns == nc {
		return model.MatchResult{IsMatch: true, Confidence: ConfidenceExact, Reason: ReasonExact}
	}

	ps, pc := Parse(stored), Parse(candidate)
	if direct := Components(ps, pc); direct.IsMatch {
		return direct
	}

	pr := Parse(reverseTokens(nc))
	if rev := Components(ps, pr); rev.IsMatch {
		return model.MatchResult{
			IsMatch:    true,
			Confidence: min(rev.Confidence, reversedCap),
			Reason:     ReasonReversed,
		}
	}

	if ps.Last != "" && ps.Last == pr.Last && initialExpansion(ps.First, pr.First) {
		return model.MatchResult{
			IsMatch:    true,
			Confidence: reversedAbbrevConfidence,
			Reason:     ReasonReversedAbbrev,
		}
	}

	if singleComponentVariance(ps, pr) {
		return model.MatchResult{
			IsMatch:    true,
			Confidence: reversedVarianceConfidence,
			Reason:     ReasonReversedVariance,
		}
	}

	return model.MatchResult{Reason: ReasonNoMatch}
}

// initialExpansion reports whether one string is a single letter matching the
// other's first letter. Two equal single letters are plain equality, not an
// expansion.
func initialExpansion(a, b string) bool {
	if len(a) == 1 && len(b) > 1 && a[0] == b[0] {
		return true
	}
	if len(b) == 1 && len(a) > 1 && b[0] == a[0] {
		return true
	}
	return false
}

// singleComponentVariance reports whether exactly one of first/last differs
// and that difference is within maxVarianceDistance edits. All four
// components must be present; middles are ignored.
func singleComponentVariance(a, b model.ParsedName) bool {
	if a.First == "" || a.Last == "" || b.First == "" || b.Last == "" {
		return false
	}
	firstEqual := a.First == b.First
	lastEqual := a.Last == b.Last
	switch {
	case firstEqual && !lastEqual:
		return levenshtein.ComputeDistance(a.Last, b.Last) <= maxVarianceDistance
	case lastEqual && !firstEqual:
		return levenshtein.ComputeDistance(a.First, b.First) <= maxVarianceDistance
	default:
		return false
	}
}

func reverseTokens(normalized string) string {
	tokens := strings.Fields(normalized)
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	return strings.Join(tokens, " ")
}
