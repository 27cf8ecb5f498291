package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/districthq/districthq/internal/platform/httpx"
)

// Query bounds for the high-risk endpoint. Out-of-range values are
// rejected, never clamped: the results feed operator dashboards where a
// silently adjusted window would mislead.
const (
	MinHoursBack = 1
	MaxHoursBack = 720
	MaxLimit     = 100

	DefaultMinScore  = 50
	DefaultHoursBack = 24
	DefaultLimit     = 50
)

// Query selects high-risk events.
type Query struct {
	MinScore  int
	HoursBack int
	Limit     int
}

// Validate enforces the documented bounds.
func (q Query) Validate() error {
	if q.MinScore < 0 || q.MinScore > MaxScore {
		return fmt.Errorf("%w: min_score must be within [0,%d]", httpx.ErrValidation, MaxScore)
	}
	if q.HoursBack < MinHoursBack || q.HoursBack > MaxHoursBack {
		return fmt.Errorf("%w: hours_back must be within [%d,%d]", httpx.ErrValidation, MinHoursBack, MaxHoursBack)
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be within [1,%d]", httpx.ErrValidation, MaxLimit)
	}
	return nil
}

// QueryStore is the read side of the event store.
type QueryStore interface {
	HighRisk(ctx context.Context, minScore int, since time.Time, limit int) ([]Event, error)
	Recent(ctx context.Context, filter QueryFilter) ([]Event, error)
}

// Aggregates summarize a returned window for dashboards.
type Aggregates struct {
	ScoreBuckets map[string]int `json:"score_buckets"`
	ByCategory   map[string]int `json:"by_category"`
	ByActor      map[string]int `json:"by_actor"`
	BySourceIP   map[string]int `json:"by_source_ip"`
}

// Report is the high-risk query result.
type Report struct {
	Events     []Event    `json:"events"`
	Aggregates Aggregates `json:"aggregates"`
}

// Service answers audit queries.
type Service struct {
	store QueryStore
	group singleflight.Group
	clock func() time.Time
}

// NewService constructs a query service.
func NewService(store QueryStore) *Service {
	return &Service{store: store, clock: time.Now}
}

// WithClock overrides the clock; used by tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// HighRiskEvents validates the query, fetches matching events newest
// first, and computes aggregate distributions. Identical concurrent
// dashboard queries are collapsed to one store round trip.
func (s *Service) HighRiskEvents(ctx context.Context, q Query) (Report, error) {
	if err := q.Validate(); err != nil {
		return Report{}, err
	}
	key := fmt.Sprintf("highrisk:%d:%d:%d", q.MinScore, q.HoursBack, q.Limit)
	result, err, _ := s.group.Do(key, func() (any, error) {
		since := s.clock().UTC().Add(-time.Duration(q.HoursBack) * time.Hour)
		events, err := s.store.HighRisk(ctx, q.MinScore, since, q.Limit)
		if err != nil {
			return Report{}, err
		}
		return Report{Events: events, Aggregates: aggregate(events)}, nil
	})
	if err != nil {
		return Report{}, err
	}
	return result.(Report), nil
}

// RecentEvents returns the latest events, optionally narrowed by category
// and actor. The limit is clamped, not rejected: this feed is a browsing
// surface, not a bounded investigation window.
func (s *Service) RecentEvents(ctx context.Context, filter QueryFilter) ([]Event, error) {
	if filter.Limit <= 0 || filter.Limit > MaxLimit {
		filter.Limit = DefaultLimit
	}
	return s.store.Recent(ctx, filter)
}

func aggregate(events []Event) Aggregates {
	agg := Aggregates{
		ScoreBuckets: make(map[string]int),
		ByCategory:   make(map[string]int),
		ByActor:      make(map[string]int),
		BySourceIP:   make(map[string]int),
	}
	for _, ev := range events {
		agg.ScoreBuckets[scoreBucket(ev.RiskScore)]++
		agg.ByCategory[string(ev.Category)]++
		agg.ByActor[actorLabel(ev.ActorID)]++
		agg.BySourceIP[ipLabel(ev.IP)]++
	}
	return agg
}

func scoreBucket(score int) string {
	switch {
	case score >= 75:
		return "75-100"
	case score >= 50:
		return "50-74"
	case score >= 25:
		return "25-49"
	default:
		return "0-24"
	}
}

func actorLabel(actorID int64) string {
	if actorID == 0 {
		return "anonymous"
	}
	return strconv.FormatInt(actorID, 10)
}

func ipLabel(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}
