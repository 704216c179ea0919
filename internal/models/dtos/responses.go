package dtos

import "time"

// DraftSyncResponse is returned by the on-demand batch sync.
type DraftSyncResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// SyncErrorResponse is returned when a batch sync fails. It is always JSON so
// UI callers can branch on status.
type SyncErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// WebhookResponse acknowledges a webhook ingestion, including duplicates.
type WebhookResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ErrorResponse is the webhook error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunSummary is one row of the sync run history.
type RunSummary struct {
	Trigger    string    `json:"trigger,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Imported   int       `json:"imported"`
	Error      string    `json:"error,omitempty"`
}

// TargetSummary is the current state of the ADV document.
type TargetSummary struct {
	Entries   int        `json:"entries"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// SyncStatusResponse describes the schedule, the document and recent passes.
type SyncStatusResponse struct {
	Status         string                 `json:"status"`
	Store          string                 `json:"store"`
	DocumentKey    string                 `json:"document_key"`
	Interval       string                 `json:"interval"`
	HistoryEnabled bool                   `json:"history_enabled"`
	Target         *TargetSummary         `json:"target,omitempty"`
	LastRuns       map[string]*RunSummary `json:"last_runs"`
	RecentRuns     []RunSummary           `json:"recent_runs"`
}

type ServiceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

type HealthCheckResponse struct {
	Status   string                   `json:"status"`
	Services map[string]ServiceStatus `json:"services"`
	UpSince  time.Time                `json:"up_since"`
	Uptime   string                   `json:"uptime"`
}
