package model

// Holder is one account holder from the intake roster. SSN is optional and
// may contain formatting (dashes, spaces); matching strips it to digits.
type Holder struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	FullName  string `json:"full_name"`
	SSN       string `json:"ssn,omitempty"`
}

// Account is one known account a document may reference. Number is the
// printed account number and may be absent for accounts identified only by
// their holders.
type Account struct {
	ID      string   `json:"id"`
	Number  string   `json:"number,omitempty"`
	Holders []Holder `json:"holders"`
}

// AllHolders flattens the holders of every account, preserving roster order.
// A person who co-signs several accounts appears once per account row.
func AllHolders(accounts []Account) []Holder {
	var out []Holder
	for _, a := range accounts {
		out = append(out, a.Holders...)
	}
	return out
}
