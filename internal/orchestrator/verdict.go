package orchestrator

import "strings"

// Verdict is the outcome read from a validator audit.
type Verdict int

const (
	// VerdictAmbiguous means no verdict token could be found. It counts
	// as a non-approval but is surfaced distinctly so operators can tell
	// a model that rejected from a model that rambled.
	VerdictAmbiguous Verdict = iota
	// VerdictApproved clears the research for composition.
	VerdictApproved
	// VerdictRejected sends the pipeline back to research.
	VerdictRejected
)

// Verdict tokens, matched case-insensitively. Both the Spanish and the
// English pairs are accepted since the model answers in the language of
// the topic.
var (
	approvalTokens  = []string{"APROBADO", "APPROVED"}
	rejectionTokens = []string{"RECHAZADO", "REJECTED"}
)

// String returns the verdict name used in logs and event payloads.
func (v Verdict) String() string {
	switch v {
	case VerdictApproved:
		return "approved"
	case VerdictRejected:
		return "rejected"
	default:
		return "ambiguous"
	}
}

// Approved reports whether the verdict clears the pipeline to compose.
func (v Verdict) Approved() bool { return v == VerdictApproved }

// ParseVerdict reads the verdict out of a validator audit. A rejection
// token anywhere in the text wins over an approval token, so an audit
// like "not APPROVED, REJECTED for missing sources" reads as a
// rejection. Text with neither token is ambiguous.
func ParseVerdict(audit string) Verdict {
	upper := strings.ToUpper(audit)

	if containsAny(upper, rejectionTokens) {
		return VerdictRejected
	}
	if containsAny(upper, approvalTokens) {
		return VerdictApproved
	}
	return VerdictAmbiguous
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
