package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryFilter narrows RecentEvents results.
type QueryFilter struct {
	Category Category
	ActorID  int64
	Limit    int
}

// PGStore persists events in the audit_events table. Rows are append-only;
// nothing in this store updates or deletes inside the request path.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a store backed by the provided pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Append inserts one event.
func (s *PGStore) Append(ctx context.Context, ev Event) error {
	var contextJSON []byte
	if len(ev.Context) > 0 {
		data, err := json.Marshal(ev.Context)
		if err != nil {
			return fmt.Errorf("audit: marshal context: %w", err)
		}
		contextJSON = data
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events
			(id, occurred_at, actor_id, staff_id, target_user_id, action, category,
			 outcome, ip_address, user_agent, session_id, risk_score, detail, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		ev.ID,
		pgtype.Timestamptz{Time: ev.Timestamp, Valid: true},
		optionalID(ev.ActorID),
		optionalID(ev.StaffID),
		optionalID(ev.TargetUserID),
		ev.Action,
		string(ev.Category),
		string(ev.Outcome),
		optionalText(ev.IP),
		optionalText(ev.UserAgent),
		optionalText(ev.SessionID),
		ev.RiskScore,
		optionalText(ev.Detail),
		contextJSON,
	)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// HighRisk returns events at or above minScore since the cutoff, newest
// first.
func (s *PGStore) HighRisk(ctx context.Context, minScore int, since time.Time, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, occurred_at, actor_id, staff_id, target_user_id, action, category,
		       outcome, ip_address, user_agent, session_id, risk_score, detail, context
		FROM audit_events
		WHERE risk_score >= $1 AND occurred_at >= $2
		ORDER BY occurred_at DESC, id DESC
		LIMIT $3`,
		minScore, pgtype.Timestamptz{Time: since, Valid: true}, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: high risk query: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Recent returns the latest events matching the filter, newest first.
func (s *PGStore) Recent(ctx context.Context, filter QueryFilter) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, occurred_at, actor_id, staff_id, target_user_id, action, category,
		       outcome, ip_address, user_agent, session_id, risk_score, detail, context
		FROM audit_events
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = 0 OR actor_id = $2)
		ORDER BY occurred_at DESC, id DESC
		LIMIT $3`,
		string(filter.Category), filter.ActorID, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent query: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// PurgeBefore deletes events older than the cutoff. Retention is an
// administrative operation run by the worker, never by request handlers.
func (s *PGStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_events WHERE occurred_at < $1`,
		pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("audit: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanEvents(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			ev          Event
			occurredAt  pgtype.Timestamptz
			actorID     pgtype.Int8
			staffID     pgtype.Int8
			targetID    pgtype.Int8
			ip          pgtype.Text
			userAgent   pgtype.Text
			sessionID   pgtype.Text
			detail      pgtype.Text
			contextJSON []byte
		)
		if err := rows.Scan(&ev.ID, &occurredAt, &actorID, &staffID, &targetID,
			&ev.Action, &ev.Category, &ev.Outcome, &ip, &userAgent, &sessionID,
			&ev.RiskScore, &detail, &contextJSON); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		if occurredAt.Valid {
			ev.Timestamp = occurredAt.Time
		}
		ev.ActorID = actorID.Int64
		ev.StaffID = staffID.Int64
		ev.TargetUserID = targetID.Int64
		ev.IP = ip.String
		ev.UserAgent = userAgent.String
		ev.SessionID = sessionID.String
		ev.Detail = detail.String
		if len(contextJSON) > 0 {
			_ = json.Unmarshal(contextJSON, &ev.Context)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func optionalID(id int64) pgtype.Int8 {
	if id == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: id, Valid: true}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
