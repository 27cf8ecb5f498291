package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/districthq/districthq/internal/audit"
	"github.com/districthq/districthq/internal/platform/httpx"
	_ "github.com/districthq/districthq/testing"
)

type stubQueryStore struct {
	events    []audit.Event
	lastSince time.Time
	lastLimit int
	calls     int
}

func (s *stubQueryStore) HighRisk(ctx context.Context, minScore int, since time.Time, limit int) ([]audit.Event, error) {
	s.calls++
	s.lastSince = since
	s.lastLimit = limit
	return s.events, nil
}

func (s *stubQueryStore) Recent(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	s.lastLimit = filter.Limit
	return s.events, nil
}

func TestHighRiskRejectsOutOfRange(t *testing.T) {
	svc := audit.NewService(&stubQueryStore{})
	ctx := context.Background()

	bad := []audit.Query{
		{MinScore: -1, HoursBack: 24, Limit: 50},
		{MinScore: 101, HoursBack: 24, Limit: 50},
		{MinScore: 50, HoursBack: 0, Limit: 50},
		{MinScore: 50, HoursBack: 721, Limit: 50},
		{MinScore: 50, HoursBack: 24, Limit: 0},
		{MinScore: 50, HoursBack: 24, Limit: 101},
	}
	for _, q := range bad {
		_, err := svc.HighRiskEvents(ctx, q)
		require.Error(t, err, "query %+v", q)
		require.True(t, errors.Is(err, httpx.ErrValidation), "query %+v: %v", q, err)
	}
}

func TestHighRiskWindowAndLimit(t *testing.T) {
	store := &stubQueryStore{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := audit.NewService(store).WithClock(func() time.Time { return now })

	_, err := svc.HighRiskEvents(context.Background(), audit.Query{MinScore: 60, HoursBack: 48, Limit: 25})
	require.NoError(t, err)
	require.Equal(t, now.Add(-48*time.Hour), store.lastSince)
	require.Equal(t, 25, store.lastLimit)
}

func TestHighRiskAggregates(t *testing.T) {
	store := &stubQueryStore{events: []audit.Event{
		{ID: "3", RiskScore: 90, Category: audit.CategorySecurity, ActorID: 7, IP: "10.0.0.1"},
		{ID: "2", RiskScore: 62, Category: audit.CategoryAuth, ActorID: 7, IP: "10.0.0.2"},
		{ID: "1", RiskScore: 55, Category: audit.CategoryAuth, IP: ""},
	}}
	svc := audit.NewService(store)

	report, err := svc.HighRiskEvents(context.Background(), audit.Query{MinScore: 50, HoursBack: 24, Limit: 50})
	require.NoError(t, err)
	require.Len(t, report.Events, 3)

	agg := report.Aggregates
	require.Equal(t, 1, agg.ScoreBuckets["75-100"])
	require.Equal(t, 2, agg.ScoreBuckets["50-74"])
	require.Equal(t, 2, agg.ByCategory[string(audit.CategoryAuth)])
	require.Equal(t, 2, agg.ByActor["7"])
	require.Equal(t, 1, agg.ByActor["anonymous"])
	require.Equal(t, 1, agg.BySourceIP["unknown"])
}

func TestRecentEventsClampsLimit(t *testing.T) {
	store := &stubQueryStore{}
	svc := audit.NewService(store)

	_, err := svc.RecentEvents(context.Background(), audit.QueryFilter{Limit: 10_000})
	require.NoError(t, err)
	require.Equal(t, audit.DefaultLimit, store.lastLimit)

	_, err = svc.RecentEvents(context.Background(), audit.QueryFilter{})
	require.NoError(t, err)
	require.Equal(t, audit.DefaultLimit, store.lastLimit)
}
