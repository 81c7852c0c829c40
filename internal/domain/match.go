package domain

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult is the outcome of a verification or identification decision.
// Score is always the maximum similarity over an identity's enrolled
// templates, never an average, and Matched holds iff Score >= the threshold
// the decision was made with.
type MatchResult struct {
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`

	// BestIndex is the position of the winning template within the matched
	// identity's set. -1 when nothing was compared (empty set, no match).
	BestIndex int `json:"best_index"`

	// IdentityID is set only for identification results that matched.
	IdentityID *int64 `json:"identity_id,omitempty"`
}

// MatchMode distinguishes 1:1 verification from 1:N identification in
// audit records.
type MatchMode string

const (
	ModeVerify   MatchMode = "verify"
	ModeIdentify MatchMode = "identify"
)

// MatchAudit is an audit record of a single decision. Identification
// decisions that matched nobody carry a nil IdentityID.
type MatchAudit struct {
	ID         uuid.UUID `json:"id"`
	IdentityID *int64    `json:"identity_id,omitempty"`
	Mode       MatchMode `json:"mode"`
	Matched    bool      `json:"matched"`
	Score      float64   `json:"score"`
	Threshold  float64   `json:"threshold"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
