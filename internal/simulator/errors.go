package simulator

import "errors"

// Failure taxonomy for the simulator core. Generation and execution failures
// are recovered per tick; session and configuration errors are fatal for the
// account loop and the process respectively.
var (
	// ErrGenerationFailed marks an LLM call that failed or timed out. The
	// tick is skipped; a retry happens naturally on a future tick.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrExecutionFailed marks an action that failed even after the single
	// retry. Session counters are not touched.
	ErrExecutionFailed = errors.New("action execution failed")

	// ErrSessionInvalid marks a rejected authentication token. The account
	// loop stops and surfaces the condition instead of looping against a
	// dead session.
	ErrSessionInvalid = errors.New("account session invalid")

	// ErrConfiguration marks an invalid behavior policy. Fails fast at
	// startup, before any action loop begins.
	ErrConfiguration = errors.New("invalid behavior configuration")
)
