package model

// ParsedName holds the structural components of a normalized person name.
// Middle carries every token between the first and last when the source name
// has four or more tokens.
type ParsedName struct {
	First  string `json:"first"`
	Middle string `json:"middle,omitempty"`
	Last   string `json:"last"`
}

// MatchResult is the outcome of comparing two names.
type MatchResult struct {
	IsMatch    bool   `json:"is_match"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// HolderMatch ties a roster holder to the evidence that matched it on a page.
type HolderMatch struct {
	Holder     Holder `json:"holder"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// MatchedHolder is the persisted form of a holder match. It carries ids only
// so classification rows never duplicate roster PII.
type MatchedHolder struct {
	HolderID   string `json:"holder_id"`
	AccountID  string `json:"account_id"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}
