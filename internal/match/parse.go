package match

import (
	"strings"

	"github.com/sells-group/docintake/internal/model"
)

// Parse splits a raw name into first/middle/last components after
// normalization. Token policy:
//
//	1 token:  first only
//	2 tokens: first + last
//	3 tokens: first + middle + last
//	4+:       first token, last token, everything between joined as middle
//
// The 4+ rule deliberately treats "Maria Del Carmen Lopez Garcia" as
// first=MARIA, middle="DEL CARMEN LOPEZ", last=GARCIA rather than guessing
// where a compound surname starts.
func Parse(name string) model.ParsedName {
	tokens := strings.Fields(Normalize(name))
	switch len(tokens) {
	case 0:
		return model.ParsedName{}
	case 1:
		return model.ParsedName{First: tokens[0]}
	case 2:
		return model.ParsedName{First: tokens[0], Last: tokens[1]}
	case 3:
		return model.ParsedName{First: tokens[0], Middle: tokens[1], Last: tokens[2]}
	default:
		return model.ParsedName{
			First:  tokens[0],
			Middle: strings.Join(tokens[1:len(tokens)-1], " "),
			Last:   tokens[len(tokens)-1],
		}
	}
}
