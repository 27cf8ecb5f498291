package audit

// Risk scoring weights. Every term is non-negative, so the score is
// monotonic in each input; the sum is clamped to [0,100]. Exact
// coefficients are a tuning surface, not a contract.
const (
	baseSecurity     = 30
	baseDataCritical = 25
	basePermission   = 20
	baseAuth         = 15
	baseSystem       = 10

	weightFailure      = 20
	weightCrossUser    = 15
	weightMissingIP    = 10
	weightErrorDetail  = 10
	weightNovelIP      = 10
	weightOffHours     = 10
	weightPerFailure   = 6
	maxCountedFailures = 5

	offHoursEnd = 6 // 00:00-05:59 counts as off-hours

	// MaxScore bounds every computed risk score.
	MaxScore = 100
)

// RiskContext carries the inputs the scorer evaluates. RecentFailures is
// the failed-attempt count for the same actor and source within the
// rolling window; NovelIP marks a source never seen for the actor before.
type RiskContext struct {
	Category       Category
	ActorID        int64
	TargetUserID   int64
	Failed         bool
	IP             string
	NovelIP        bool
	RecentFailures int64
	ErrorDetail    bool
	Hour           int
}

// Scorer computes deterministic risk scores.
type Scorer struct{}

// Score returns the risk score for the context, clamped to [0,MaxScore].
func (Scorer) Score(rc RiskContext) int {
	score := categoryBase(rc.Category)
	if rc.Failed {
		score += weightFailure
	}
	if rc.TargetUserID != 0 && rc.TargetUserID != rc.ActorID {
		score += weightCrossUser
	}
	if rc.IP == "" {
		score += weightMissingIP
	}
	if rc.ErrorDetail {
		score += weightErrorDetail
	}
	if rc.NovelIP {
		score += weightNovelIP
	}
	if rc.Hour >= 0 && rc.Hour < offHoursEnd {
		score += weightOffHours
	}
	failures := rc.RecentFailures
	if failures > maxCountedFailures {
		failures = maxCountedFailures
	}
	if failures > 0 {
		score += int(failures) * weightPerFailure
	}
	if score > MaxScore {
		score = MaxScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

func categoryBase(c Category) int {
	switch c {
	case CategorySecurity:
		return baseSecurity
	case CategoryDataCritical:
		return baseDataCritical
	case CategoryPermission:
		return basePermission
	case CategoryAuth:
		return baseAuth
	case CategorySystem:
		return baseSystem
	default:
		return 0
	}
}
