// Package jobs hosts background processing: scheduled audit retention
// and periodic risk sweeps.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRetention purges audit events past the retention horizon.
	TaskAuditRetention = "audit:retention"
	// TaskRiskScan sweeps the recent window for high-risk activity.
	TaskRiskScan = "audit:risk_scan"
)

// AuditRetentionPayload configures a retention run.
type AuditRetentionPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditRetentionTask constructs the retention task.
func NewAuditRetentionTask(payload AuditRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

// RiskScanPayload configures a risk sweep.
type RiskScanPayload struct {
	MinScore  int `json:"min_score"`
	HoursBack int `json:"hours_back"`
	Limit     int `json:"limit"`
}

// NewRiskScanTask constructs the risk sweep task.
func NewRiskScanTask(payload RiskScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRiskScan, data), nil
}
