package constants

// Trigger names recorded in order_sync_runs and used as metric labels
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerWebhook   = "webhook"
	TriggerCLI       = "cli"
)

// Pass outcomes
const (
	OutcomeSuccess = "success"
	OutcomeNoop    = "noop"
	OutcomeFailure = "failure"
)
