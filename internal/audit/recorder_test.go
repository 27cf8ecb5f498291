package audit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/districthq/districthq/internal/audit"
	_ "github.com/districthq/districthq/testing"
)

type memStore struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
	gate   chan struct{}
}

func (s *memStore) Append(ctx context.Context, ev audit.Event) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *memStore) all() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestRecordAppendsInOrder(t *testing.T) {
	store := &memStore{}
	reg := prometheus.NewRegistry()
	rec := audit.NewRecorder(store, nil, nil, reg, audit.RecorderOptions{})

	ctx := context.Background()
	var ids []string
	for i := 0; i < 10; i++ {
		ev := rec.Record(ctx, audit.Input{
			ActorID:  42,
			Action:   fmt.Sprintf("action.%d", i),
			Category: audit.CategorySystem,
			Outcome:  audit.OutcomeSuccess,
			IP:       "10.0.0.1",
		})
		if ev.ID == "" {
			t.Fatalf("event %d has no id", i)
		}
		ids = append(ids, ev.ID)
	}
	rec.Close()

	got := store.all()
	if len(got) != 10 {
		t.Fatalf("expected 10 appended events, got %d", len(got))
	}
	for i, ev := range got {
		if ev.ID != ids[i] {
			t.Fatalf("append order broken at %d: %s != %s", i, ev.ID, ids[i])
		}
		if i > 0 && got[i-1].ID >= ev.ID {
			t.Fatalf("ids not monotonic at %d: %s >= %s", i, got[i-1].ID, ev.ID)
		}
	}
	if v := counterValue(t, reg, "districthq_audit_events_recorded_total"); v != 10 {
		t.Fatalf("recorded counter = %v", v)
	}
}

func TestStoreFailureDoesNotAffectCaller(t *testing.T) {
	store := &memStore{err: errors.New("disk on fire")}
	reg := prometheus.NewRegistry()
	rec := audit.NewRecorder(store, nil, nil, reg, audit.RecorderOptions{})

	ev := rec.Record(context.Background(), audit.Input{
		Action:   "users.update",
		Category: audit.CategoryDataCritical,
		Outcome:  audit.OutcomeSuccess,
		IP:       "10.0.0.1",
	})
	if ev.Action != "users.update" {
		t.Fatalf("caller must still receive the event")
	}
	rec.Close()

	if v := counterValue(t, reg, "districthq_audit_write_failures_total"); v != 1 {
		t.Fatalf("write failure counter = %v, want 1", v)
	}
}

func TestScoreOverrideClamped(t *testing.T) {
	store := &memStore{}
	rec := audit.NewRecorder(store, nil, nil, prometheus.NewRegistry(), audit.RecorderOptions{})
	defer rec.Close()

	high := 150
	ev := rec.Record(context.Background(), audit.Input{
		Action:    "custom",
		Category:  audit.CategorySystem,
		Outcome:   audit.OutcomeSuccess,
		RiskScore: &high,
	})
	if ev.RiskScore != audit.MaxScore {
		t.Fatalf("override must clamp high: %d", ev.RiskScore)
	}
	low := -5
	ev = rec.Record(context.Background(), audit.Input{
		Action:    "custom",
		Category:  audit.CategorySystem,
		Outcome:   audit.OutcomeSuccess,
		RiskScore: &low,
	})
	if ev.RiskScore != 0 {
		t.Fatalf("override must clamp low: %d", ev.RiskScore)
	}
}

func TestRepeatedFailuresRaiseLaterScores(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	window := audit.NewFailureWindow(client, 15*time.Minute)

	store := &memStore{}
	rec := audit.NewRecorder(store, window, nil, prometheus.NewRegistry(), audit.RecorderOptions{})
	defer rec.Close()

	in := audit.Input{
		ActorID:  7,
		Action:   "auth.login",
		Category: audit.CategoryAuth,
		Outcome:  audit.OutcomeFailure,
		IP:       "10.0.0.1",
	}
	ctx := context.Background()
	// Seed the source so first-seen novelty does not mask the
	// failure-count escalation.
	if _, err := window.ObserveIP(ctx, in.ActorID, in.IP); err != nil {
		t.Fatalf("observe ip: %v", err)
	}
	first := rec.Record(ctx, in)
	second := rec.Record(ctx, in)
	third := rec.Record(ctx, in)

	if !(first.RiskScore < second.RiskScore && second.RiskScore < third.RiskScore) {
		t.Fatalf("repeated failures must escalate: %d, %d, %d",
			first.RiskScore, second.RiskScore, third.RiskScore)
	}
}

func TestQueueSaturationDropsInsteadOfBlocking(t *testing.T) {
	gate := make(chan struct{})
	store := &memStore{gate: gate}
	reg := prometheus.NewRegistry()
	rec := audit.NewRecorder(store, nil, nil, reg, audit.RecorderOptions{QueueSize: 1})

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			rec.Record(ctx, audit.Input{
				Action:   "burst",
				Category: audit.CategorySystem,
				Outcome:  audit.OutcomeSuccess,
				IP:       "10.0.0.1",
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Record must never block the caller")
	}

	close(gate)
	rec.Close()

	if v := counterValue(t, reg, "districthq_audit_write_failures_total"); v < 1 {
		t.Fatalf("saturation drops must be counted, got %v", v)
	}
	if got := len(store.all()); got > 4 {
		t.Fatalf("expected drops under saturation, stored %d of 5", got)
	}
}
