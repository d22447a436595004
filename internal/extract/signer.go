package extract

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/docintake/internal/model"
)

const signerPrefix = "signer_"

// ParseSignerGroups collects the signer_<N>_<field> entries of a field set
// into one group per signer index, sorted by index. Field names inside a
// group are the bare suffix ("name", "ssn"). Fields that don't follow the
// signer naming convention are ignored; a malformed signer key (no index,
// no suffix) stays out of every group rather than being guessed at.
func ParseSignerGroups(fields map[string]model.Field) []model.SignerGroup {
	groups := make(map[int]map[string]model.Field)

	for name, f := range fields {
		idx, suffix, ok := splitSignerKey(name)
		if !ok {
			continue
		}
		if groups[idx] == nil {
			groups[idx] = make(map[string]model.Field)
		}
		groups[idx][suffix] = f
	}

	out := make([]model.SignerGroup, 0, len(groups))
	for idx, grp := range groups {
		out = append(out, model.SignerGroup{Index: idx, Fields: grp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// splitSignerKey parses "signer_2_full_name" into (2, "full_name", true).
func splitSignerKey(name string) (int, string, bool) {
	if !strings.HasPrefix(name, signerPrefix) {
		return 0, "", false
	}
	rest := strings.TrimPrefix(name, signerPrefix)

	sep := strings.Index(rest, "_")
	if sep <= 0 || sep == len(rest)-1 {
		return 0, "", false
	}

	idx, err := strconv.Atoi(rest[:sep])
	if err != nil || idx < 1 {
		return 0, "", false
	}
	return idx, rest[sep+1:], true
}
