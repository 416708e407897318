package model

import "time"

// RunStatus tracks the lifecycle of a persisted analysis run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// AnalysisRun is one persisted execution of the discovery engine: the input
// source, the configuration snapshot it ran with, and the resulting bundle.
type AnalysisRun struct {
	ID         string        `json:"id"`
	Source     string        `json:"source"`
	Status     RunStatus     `json:"status"`
	ConfigJSON string        `json:"config_json,omitempty"`
	Result     *ResultBundle `json:"result,omitempty"`
	RecordCnt  int           `json:"record_count"`
	RuleCount  int           `json:"rule_count"`
	CreatedAt  time.Time     `json:"created_at"`
}
