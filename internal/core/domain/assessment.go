package domain

import (
	"encoding/json"
	"fmt"

	"invoice-financing-engine/pkg/apperror"
)

// Recommendation is the risk provider's verdict.
type Recommendation string

const (
	RecommendationApprove Recommendation = "approve"
	RecommendationReview  Recommendation = "review"
	RecommendationReject  Recommendation = "reject"
)

// RiskAssessment is the validated boundary shape of an external risk
// provider response. The engine checks structure and numeric range only,
// never the provider's reasoning. FraudFlags are advisory; they never gate
// a state transition.
type RiskAssessment struct {
	OverallScore   int             `json:"overall_score"`
	Recommendation Recommendation  `json:"recommendation"`
	FraudFlags     []string        `json:"fraud_flags,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// Validate rejects malformed provider payloads before they reach the state
// machine.
func (a RiskAssessment) Validate() error {
	if a.OverallScore < 0 || a.OverallScore > 100 {
		return apperror.ErrMalformedAssessment(
			fmt.Sprintf("overall score %d outside [0,100]", a.OverallScore))
	}
	switch a.Recommendation {
	case RecommendationApprove, RecommendationReview, RecommendationReject:
		return nil
	default:
		return apperror.ErrMalformedAssessment(
			fmt.Sprintf("unknown recommendation %q", a.Recommendation))
	}
}
