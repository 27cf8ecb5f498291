package audit

import (
	"context"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Store is the durable append target for events.
type Store interface {
	Append(ctx context.Context, ev Event) error
}

// RecorderOptions tune the recorder. Zero values pick defaults.
type RecorderOptions struct {
	QueueSize    int
	WriteTimeout time.Duration
	Clock        func() time.Time
}

// Recorder scores and appends audit events. Appends run on a single
// background writer, which both decouples callers from storage latency
// and preserves record order: a later action never lands before an
// earlier one. Storage failures never propagate to the caller; they are
// logged and counted so operators can detect silent audit loss.
type Recorder struct {
	store        Store
	window       *FailureWindow
	scorer       Scorer
	logger       *slog.Logger
	clock        func() time.Time
	writeTimeout time.Duration

	writeFailures prometheus.Counter
	recorded      prometheus.Counter

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewRecorder constructs a Recorder and starts its writer goroutine. The
// window may be nil, in which case failure counts and IP novelty do not
// contribute to scores.
func NewRecorder(store Store, window *FailureWindow, logger *slog.Logger, reg prometheus.Registerer, opts RecorderOptions) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	writeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "districthq_audit_write_failures_total",
		Help: "Audit events that could not be durably appended.",
	})
	recorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "districthq_audit_events_recorded_total",
		Help: "Audit events accepted for appending.",
	})
	if reg != nil {
		reg.MustRegister(writeFailures, recorded)
	}
	r := &Recorder{
		store:         store,
		window:        window,
		logger:        logger,
		clock:         opts.Clock,
		writeTimeout:  opts.WriteTimeout,
		writeFailures: writeFailures,
		recorded:      recorded,
		entropy:       ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0),
		events:        make(chan Event, opts.QueueSize),
		done:          make(chan struct{}),
	}
	go r.run()
	return r
}

// Record scores the input, enqueues the event for durable append, and
// returns it immediately. It never fails the caller's operation.
func (r *Recorder) Record(ctx context.Context, in Input) Event {
	now := r.clock().UTC()

	var novel bool
	var failures int64
	if r.window != nil {
		var err error
		novel, err = r.window.ObserveIP(ctx, in.ActorID, in.IP)
		if err != nil {
			novel = false
			r.logger.Warn("audit ip novelty check", slog.Any("error", err))
		}
		failures, err = r.window.Failures(ctx, in.ActorID, in.IP)
		if err != nil {
			failures = 0
			r.logger.Warn("audit failure window read", slog.Any("error", err))
		}
	}

	score := 0
	if in.RiskScore != nil {
		score = clampScore(*in.RiskScore)
	} else {
		score = r.scorer.Score(RiskContext{
			Category:       in.Category,
			ActorID:        in.ActorID,
			TargetUserID:   in.TargetUserID,
			Failed:         in.Outcome == OutcomeFailure,
			IP:             in.IP,
			NovelIP:        novel,
			RecentFailures: failures,
			ErrorDetail:    in.Detail != "",
			Hour:           now.Hour(),
		})
	}

	ev := Event{
		ID:           r.nextID(now),
		Timestamp:    now,
		ActorID:      in.ActorID,
		StaffID:      in.StaffID,
		TargetUserID: in.TargetUserID,
		Action:       in.Action,
		Category:     in.Category,
		Outcome:      in.Outcome,
		IP:           in.IP,
		UserAgent:    in.UserAgent,
		SessionID:    in.SessionID,
		RiskScore:    score,
		Detail:       in.Detail,
		Context:      in.Context,
	}

	if in.Outcome == OutcomeFailure && r.window != nil {
		if _, err := r.window.RecordFailure(ctx, in.ActorID, in.IP); err != nil {
			r.logger.Warn("audit failure window increment", slog.Any("error", err))
		}
	}

	select {
	case r.events <- ev:
		r.recorded.Inc()
	default:
		// Queue saturated: dropping is preferable to blocking the
		// request path, but the loss must be observable.
		r.writeFailures.Inc()
		r.logger.Error("audit queue full, event dropped",
			slog.String("action", ev.Action),
			slog.String("event_id", ev.ID),
		)
	}
	return ev
}

// Close stops accepting events and drains the queue.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.events)
		<-r.done
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		err := r.store.Append(ctx, ev)
		cancel()
		if err != nil {
			r.writeFailures.Inc()
			r.logger.Error("audit append failed",
				slog.String("event_id", ev.ID),
				slog.String("action", ev.Action),
				slog.Any("error", err),
			)
		}
	}
}

func (r *Recorder) nextID(now time.Time) string {
	r.entropyMu.Lock()
	defer r.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), r.entropy).String()
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
