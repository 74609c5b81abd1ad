package dto

import "time"

type EnqueueRequest struct {
	TenantID string `json:"tenant_id"`
	StopID   string `json:"stop_id"`
	Reason   string `json:"reason"`
	Force    bool   `json:"force"`
}

type JobResponse struct {
	JobID         string     `json:"job_id"`
	StopID        string     `json:"stop_id"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastError     string     `json:"last_error,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type SeedRequest struct {
	TenantID string `json:"tenant_id"`
	Limit    int    `json:"limit"`
}

type ProcessRequest struct {
	TenantID string `json:"tenant_id"`
	Limit    int    `json:"limit"`
}

type SweepRequest struct {
	TenantID     string `json:"tenant_id"`
	SeedLimit    int    `json:"seed_limit"`
	ProcessLimit int    `json:"process_limit"`
}
