package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Purger deletes audit events older than a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DefaultRetentionDays bounds how long audit events are kept when the
// payload does not say otherwise.
const DefaultRetentionDays = 365

// NewAuditRetentionHandler returns the handler for retention runs.
func NewAuditRetentionHandler(purger Purger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditRetentionPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		days := payload.RetentionDays
		if days <= 0 {
			days = DefaultRetentionDays
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -days)

		deleted, err := purger.PurgeBefore(ctx, cutoff)
		if err != nil {
			logger.Error("audit retention purge", slog.Any("error", err))
			return err
		}
		logger.Info("audit retention complete",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff),
		)
		return nil
	}
}
