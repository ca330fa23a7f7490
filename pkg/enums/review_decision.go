package enums

import "fmt"

// ReviewDecision is a supervisor's verdict on a check.
type ReviewDecision string

const (
	ReviewDecisionPending  ReviewDecision = "pending"
	ReviewDecisionApproved ReviewDecision = "approved"
	ReviewDecisionRejected ReviewDecision = "rejected"
)

var validReviewDecisions = []ReviewDecision{
	ReviewDecisionPending,
	ReviewDecisionApproved,
	ReviewDecisionRejected,
}

func (d ReviewDecision) IsValid() bool {
	for _, candidate := range validReviewDecisions {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseReviewDecision(value string) (ReviewDecision, error) {
	for _, candidate := range validReviewDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid review decision %q", value)
}
