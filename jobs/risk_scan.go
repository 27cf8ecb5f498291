package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/districthq/districthq/internal/audit"
)

// RiskReporter answers high-risk queries for the sweep.
type RiskReporter interface {
	HighRiskEvents(ctx context.Context, q audit.Query) (audit.Report, error)
}

// NewRiskScanHandler returns the handler for periodic risk sweeps. The
// sweep only surfaces findings in the logs; paging and alert routing sit
// outside this service.
func NewRiskScanHandler(reporter RiskReporter, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RiskScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		q := audit.Query{
			MinScore:  payload.MinScore,
			HoursBack: payload.HoursBack,
			Limit:     payload.Limit,
		}
		if q.MinScore <= 0 {
			q.MinScore = audit.DefaultMinScore
		}
		if q.HoursBack <= 0 {
			q.HoursBack = audit.DefaultHoursBack
		}
		if q.Limit <= 0 {
			q.Limit = audit.DefaultLimit
		}

		report, err := reporter.HighRiskEvents(ctx, q)
		if err != nil {
			logger.Error("risk scan query", slog.Any("error", err))
			return err
		}
		if len(report.Events) == 0 {
			logger.Info("risk scan clear",
				slog.Int("min_score", q.MinScore),
				slog.Int("hours_back", q.HoursBack),
			)
			return nil
		}

		for _, ev := range report.Events {
			logger.Warn("high risk event",
				slog.String("event_id", ev.ID),
				slog.String("action", ev.Action),
				slog.String("category", string(ev.Category)),
				slog.Int("risk_score", ev.RiskScore),
				slog.Int64("actor_id", ev.ActorID),
				slog.String("ip", ev.IP),
			)
		}
		logger.Warn("risk scan findings",
			slog.Int("events", len(report.Events)),
			slog.Any("by_category", report.Aggregates.ByCategory),
		)
		return nil
	}
}
