// Package metrics records what the studio does: Prometheus collectors for
// operations, provider calls and HTTP requests, plus a small in-memory store
// that backs the health endpoint.
package metrics

import "time"

// OperationRecord is one finished (or rejected) studio operation.
type OperationRecord struct {
	// Operation is "summon", "revive" or "analyze"
	Operation string `json:"operation"`

	// Outcome is "success", "provider_error", "parse_error" or "rejected"
	Outcome string `json:"outcome"`

	// Duration is the time spent from first transition back to Idle
	Duration time.Duration `json:"duration"`

	// At is when the record was taken
	At time.Time `json:"at"`
}

// OperationStats aggregates records of one operation.
type OperationStats struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Summary is the process status reported by /health.
type Summary struct {
	Health         string                    `json:"health"`
	Version        string                    `json:"version"`
	Uptime         time.Duration             `json:"uptime"`
	ActiveSessions int                       `json:"active_sessions"`
	Operations     map[string]OperationStats `json:"operations"`
	Recent         []OperationRecord         `json:"recent"`
}

// Outcome constants mirror the studio's.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
)

// Health constants for Summary.
const (
	HealthRunning  = "running"
	HealthDegraded = "degraded"
)
