package model

// PageText is the OCR output for a single page. Index is zero-based.
type PageText struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ClassificationKind says how a page was tied to accounts.
type ClassificationKind string

const (
	// KindDirect: the page prints exactly one known account number.
	KindDirect ClassificationKind = "direct"
	// KindShared: the page references more than one account, either by
	// printing several account numbers or by mixing an account number with
	// a holder of a different account.
	KindShared ClassificationKind = "shared"
	// KindHolderInferred: no account number on the page, but at least one
	// roster holder was identified in the text.
	KindHolderInferred ClassificationKind = "holder_inferred"
	// KindUnassociated: nothing on the page tied it to any account.
	KindUnassociated ClassificationKind = "unassociated"
)

// PageClassification records which accounts one page belongs to and why.
// AccountIDs is sorted and duplicate-free.
type PageClassification struct {
	PageIndex      int                `json:"page_index"`
	Kind           ClassificationKind `json:"kind"`
	AccountIDs     []string           `json:"account_ids,omitempty"`
	MatchedHolders []MatchedHolder    `json:"matched_holders,omitempty"`
}
