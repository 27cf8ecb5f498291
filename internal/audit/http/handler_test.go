package audithttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/districthq/districthq/internal/audit"
	audithttp "github.com/districthq/districthq/internal/audit/http"
	_ "github.com/districthq/districthq/testing"
)

type stubService struct {
	lastQuery  audit.Query
	lastFilter audit.QueryFilter
}

func (s *stubService) HighRiskEvents(ctx context.Context, q audit.Query) (audit.Report, error) {
	s.lastQuery = q
	return audit.Report{Events: []audit.Event{{ID: "01A", RiskScore: 80}}}, nil
}

func (s *stubService) RecentEvents(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	s.lastFilter = filter
	return nil, nil
}

func newRouter(svc audithttp.QueryService) http.Handler {
	r := chi.NewRouter()
	audithttp.NewHandler(nil, svc).MountRoutes(r)
	return r
}

func TestHighRiskDefaults(t *testing.T) {
	svc := &stubService{}
	res := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/high-risk", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	want := audit.Query{MinScore: audit.DefaultMinScore, HoursBack: audit.DefaultHoursBack, Limit: audit.DefaultLimit}
	if svc.lastQuery != want {
		t.Fatalf("defaults not applied: %+v", svc.lastQuery)
	}
	var body struct {
		Events []audit.Event `json:"events"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Events) != 1 {
		t.Fatalf("events missing from response")
	}
}

func TestHighRiskRejectsOutOfRangeParams(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)

	bad := []string{
		"/high-risk?min_score=101",
		"/high-risk?min_score=-1",
		"/high-risk?hours_back=0",
		"/high-risk?hours_back=721",
		"/high-risk?limit=0",
		"/high-risk?limit=101",
		"/high-risk?min_score=abc",
	}
	for _, path := range bad {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, res.Code)
		}
	}
	if svc.lastQuery != (audit.Query{}) {
		t.Fatalf("rejected queries must not reach the service: %+v", svc.lastQuery)
	}
}

func TestHighRiskPassesExplicitParams(t *testing.T) {
	svc := &stubService{}
	res := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(res,
		httptest.NewRequest(http.MethodGet, "/high-risk?min_score=75&hours_back=168&limit=20", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	want := audit.Query{MinScore: 75, HoursBack: 168, Limit: 20}
	if svc.lastQuery != want {
		t.Fatalf("params not forwarded: %+v", svc.lastQuery)
	}
}

func TestEventsFilter(t *testing.T) {
	svc := &stubService{}
	res := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(res,
		httptest.NewRequest(http.MethodGet, "/events?category=AUTH&actor_id=7&limit=10", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if svc.lastFilter.Category != audit.CategoryAuth || svc.lastFilter.ActorID != 7 || svc.lastFilter.Limit != 10 {
		t.Fatalf("filter not forwarded: %+v", svc.lastFilter)
	}
}
