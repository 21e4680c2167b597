package constants

// RunStatus is the outcome of converting one folder.
type RunStatus string

// Stable values (stored as-is in the run history).
const (
	RunStatusCompleted RunStatus = "COMPLETED" // table written
	RunStatusEmpty     RunStatus = "EMPTY"     // no documents, no table
	RunStatusCancelled RunStatus = "CANCELLED" // stopped before drain, no table
	RunStatusFailed    RunStatus = "FAILED"    // sink write failed
)
