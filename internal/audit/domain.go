// Package audit records security-relevant actions as immutable,
// risk-scored events. Events are created exactly once and never updated;
// retention is an administrative job, not part of the request path.
package audit

import "time"

// Category classifies an audit event.
type Category string

const (
	CategoryAuth         Category = "AUTH"
	CategorySecurity     Category = "SECURITY"
	CategoryPermission   Category = "PERMISSION"
	CategoryDataCritical Category = "DATA_CRITICAL"
	CategorySystem       Category = "SYSTEM"
)

// Outcome records whether the audited action succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is the durable audit record. Zero ActorID means the attempt was
// unauthenticated; it is persisted as NULL.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	ActorID      int64          `json:"actor_id,omitempty"`
	StaffID      int64          `json:"staff_id,omitempty"`
	TargetUserID int64          `json:"target_user_id,omitempty"`
	Action       string         `json:"action"`
	Category     Category       `json:"category"`
	Outcome      Outcome        `json:"outcome"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	RiskScore    int            `json:"risk_score"`
	Detail       string         `json:"detail,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// Input describes an action to record. RiskScore, when non-nil, overrides
// the computed score; callers with fixed per-action scores use it.
type Input struct {
	ActorID      int64
	StaffID      int64
	TargetUserID int64
	Action       string
	Category     Category
	Outcome      Outcome
	IP           string
	UserAgent    string
	SessionID    string
	Detail       string
	Context      map[string]any
	RiskScore    *int
}
