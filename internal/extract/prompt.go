package extract

import (
	"fmt"
	"strings"
)

const extractionSystemPrompt = `You extract structured fields from scanned financial document pages.
Respond with a single JSON object and nothing else:
{"fields": {"<field_name>": {"value": "<string>", "confidence": <0-100>}, ...}, "reasoning": "<short note>"}
Field names are snake_case. For fields describing the Nth signer on the page,
prefix with signer_<N>_ (signer_1_name, signer_2_ssn, ...). Only report
fields actually present on the page. Confidence reflects how legible and
unambiguous the value is on this page.`

// buildExtractionPrompt renders the user turn for one page.
func buildExtractionPrompt(req PageRequest) string {
	var sb strings.Builder

	if req.DocumentKind != "" {
		fmt.Fprintf(&sb, "Document type: %s\n", req.DocumentKind)
	}
	if req.AccountNumber != "" {
		fmt.Fprintf(&sb, "This page belongs to account number %s.\n", req.AccountNumber)
	}
	fmt.Fprintf(&sb, "Page %d text:\n\n", req.PageIndex+1)
	sb.WriteString(req.Text)

	return sb.String()
}
