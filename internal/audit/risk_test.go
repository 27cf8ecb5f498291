package audit_test

import (
	"testing"

	"github.com/districthq/districthq/internal/audit"
	_ "github.com/districthq/districthq/testing"
)

func baseContext() audit.RiskContext {
	return audit.RiskContext{
		Category: audit.CategoryAuth,
		ActorID:  1,
		IP:       "10.0.0.1",
		Hour:     12,
	}
}

func TestScoreCategoryOrdering(t *testing.T) {
	var s audit.Scorer
	ordered := []audit.Category{
		audit.CategorySystem,
		audit.CategoryAuth,
		audit.CategoryPermission,
		audit.CategoryDataCritical,
		audit.CategorySecurity,
	}
	prev := -1
	for _, cat := range ordered {
		rc := baseContext()
		rc.Category = cat
		got := s.Score(rc)
		if got <= prev {
			t.Fatalf("category %s scored %d, not above %d", cat, got, prev)
		}
		prev = got
	}
}

func TestScoreMonotonicInEachSignal(t *testing.T) {
	var s audit.Scorer
	base := s.Score(baseContext())

	cases := map[string]audit.RiskContext{}

	rc := baseContext()
	rc.Failed = true
	cases["failure"] = rc

	rc = baseContext()
	rc.TargetUserID = 2
	cases["cross user"] = rc

	rc = baseContext()
	rc.IP = ""
	cases["missing ip"] = rc

	rc = baseContext()
	rc.ErrorDetail = true
	cases["error detail"] = rc

	rc = baseContext()
	rc.NovelIP = true
	cases["novel ip"] = rc

	rc = baseContext()
	rc.Hour = 3
	cases["off hours"] = rc

	rc = baseContext()
	rc.RecentFailures = 2
	cases["recent failures"] = rc

	for name, rc := range cases {
		if got := s.Score(rc); got <= base {
			t.Fatalf("%s should raise the score: %d <= %d", name, got, base)
		}
	}
}

func TestScoreSelfTargetNotCrossUser(t *testing.T) {
	var s audit.Scorer
	rc := baseContext()
	rc.TargetUserID = rc.ActorID
	if got, base := s.Score(rc), s.Score(baseContext()); got != base {
		t.Fatalf("acting on oneself must not count as cross-user: %d vs %d", got, base)
	}
}

func TestScoreRepeatedFailuresEscalate(t *testing.T) {
	var s audit.Scorer
	prev := -1
	for failures := int64(0); failures <= 5; failures++ {
		rc := baseContext()
		rc.Failed = true
		rc.RecentFailures = failures
		got := s.Score(rc)
		if got <= prev {
			t.Fatalf("score must grow with failures: %d attempts scored %d, previous %d", failures, got, prev)
		}
		prev = got
	}
	// Beyond the counted maximum the contribution flattens.
	rc := baseContext()
	rc.Failed = true
	rc.RecentFailures = 50
	if got := s.Score(rc); got != prev {
		t.Fatalf("failure contribution must cap: got %d, want %d", got, prev)
	}
}

func TestScoreClamped(t *testing.T) {
	var s audit.Scorer
	rc := audit.RiskContext{
		Category:       audit.CategorySecurity,
		ActorID:        1,
		TargetUserID:   2,
		Failed:         true,
		IP:             "",
		NovelIP:        true,
		RecentFailures: 50,
		ErrorDetail:    true,
		Hour:           2,
	}
	if got := s.Score(rc); got != audit.MaxScore {
		t.Fatalf("maximal context must clamp to %d, got %d", audit.MaxScore, got)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	var s audit.Scorer
	if got := s.Score(audit.RiskContext{Category: "UNKNOWN", IP: "10.0.0.1", Hour: 12}); got != 0 {
		t.Fatalf("unknown category with no signals scores 0, got %d", got)
	}
}
