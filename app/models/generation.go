package models

// Generation status values shared by all AI-generated entities. pending is
// the only non-terminal state; completed and failed are terminal and written
// exactly once via compare-and-set on the status column.
const (
	GenerationStatusPending   = "pending"
	GenerationStatusCompleted = "completed"
	GenerationStatusFailed    = "failed"
)

// Failure reason codes recorded on a generation entity's terminal state.
const (
	FailureReasonNotFound            = "not_found"
	FailureReasonInsufficientCredits = "insufficient_credits"
	FailureReasonProviderError       = "provider_error"
)
