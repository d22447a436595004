package resolve

import (
	"strings"

	"github.com/sells-group/docintake/internal/match"
	"github.com/sells-group/docintake/internal/model"
)

const (
	// ssnConfidence and exactNameConfidence are the top two resolution
	// tiers. Both are certainties as far as downstream consumers care.
	ssnConfidence       = 100
	exactNameConfidence = 100

	// minSSNDigits guards the substring check against truncated roster
	// data. Four digits is the shortest SSN form that appears on real
	// statements ("last four").
	minSSNDigits = 4
)

// Resolution tier reasons.
const (
	ReasonSSN       = "ssn match"
	ReasonExactName = "exact name match"
)

// FindMatchingHolders resolves which roster holders appear on a page. Each
// holder is resolved independently through three tiers:
//
//	1. SSN digits found inside the page's digit stream     -> 100
//	2. normalized full name found verbatim in page text    -> 100
//	3. best flexible name match across candidates, if >=85
//
// An SSN hit short-circuits the name tiers for that holder but never
// suppresses other holders. Results keep roster order.
func FindMatchingHolders(pageText string, holders []model.Holder) []model.HolderMatch {
	pageDigits := digitsOnly(pageText)
	pageNorm := match.Normalize(pageText)
	candidates := nameCandidates(pageText)

	var out []model.HolderMatch
	for _, h := range holders {
		if m, ok := matchHolder(h, pageDigits, pageNorm, candidates); ok {
			out = append(out, m)
		}
	}
	return out
}

func matchHolder(h model.Holder, pageDigits, pageNorm string, candidates []string) (model.HolderMatch, bool) {
	if ssn := digitsOnly(h.SSN); len(ssn) >= minSSNDigits && strings.Contains(pageDigits, ssn) {
		return model.HolderMatch{Holder: h, Confidence: ssnConfidence, Reason: ReasonSSN}, true
	}

	if name := match.Normalize(h.FullName); name != "" && strings.Contains(pageNorm, name) {
		return model.HolderMatch{Holder: h, Confidence: exactNameConfidence, Reason: ReasonExactName}, true
	}

	var best model.MatchResult
	for _, cand := range candidates {
		if r := match.FlexibleName(h.FullName, cand); r.IsMatch && r.Confidence > best.Confidence {
			best = r
		}
	}
	if best.IsMatch && best.Confidence >= match.MinConfidence {
		return model.HolderMatch{Holder: h, Confidence: best.Confidence, Reason: best.Reason}, true
	}

	return model.HolderMatch{}, false
}
