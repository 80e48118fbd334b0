package generator

import "strings"

// Markers the editor is instructed to answer with.
const (
	MarkerApprove = "PASS"
	MarkerReject  = "NEEDS_IMPROVEMENT"
)

// Outcome is the tag of an editor verdict.
type Outcome int

const (
	OutcomeNeedsImprovement Outcome = iota
	OutcomeApproved
)

func (o Outcome) String() string {
	if o == OutcomeApproved {
		return "approved"
	}
	return "needs_improvement"
}

// Verdict is the editor response mapped to a tagged outcome. Feedback is only set
// for OutcomeNeedsImprovement.
type Verdict struct {
	Outcome  Outcome
	Feedback string
	Raw      string
}

func (v Verdict) Approved() bool { return v.Outcome == OutcomeApproved }

// ParseVerdict maps a raw editor response to a Verdict. Any occurrence of the approve
// marker approves the draft, even when the reject marker appears too; otherwise the
// feedback is extracted from the response.
func ParseVerdict(raw string) Verdict {
	if indexFold(raw, MarkerApprove) != -1 {
		return Verdict{Outcome: OutcomeApproved, Raw: raw}
	}
	return Verdict{Outcome: OutcomeNeedsImprovement, Feedback: ExtractFeedback(raw), Raw: raw}
}

// ExtractFeedback returns the text after the reject marker, trimmed. Without the marker
// the response is returned unchanged.
func ExtractFeedback(raw string) string {
	idx := indexFold(raw, MarkerReject)
	if idx == -1 {
		return raw
	}
	return strings.TrimSpace(raw[idx+len(MarkerReject):])
}

// indexFold is a case-insensitive strings.Index for ASCII markers. Byte offsets refer to s.
func indexFold(s, marker string) int {
	for i := 0; i+len(marker) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}
