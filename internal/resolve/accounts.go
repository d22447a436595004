package resolve

import (
	"strings"

	"github.com/sells-group/docintake/internal/model"
)

// minAccountDigits keeps short digit runs (years, page numbers) from being
// mistaken for account numbers.
const minAccountDigits = 4

// FindAccountNumbers returns the ids of accounts whose printed number occurs
// in the page's digit stream. Accounts without a number never match here;
// they are reachable only through their holders.
func FindAccountNumbers(pageText string, accounts []model.Account) []string {
	pageDigits := digitsOnly(pageText)

	var ids []string
	for _, a := range accounts {
		num := digitsOnly(a.Number)
		if len(num) >= minAccountDigits && strings.Contains(pageDigits, num) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
