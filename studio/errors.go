package studio

import (
	"errors"

	"spooktrunt/textgen"
)

// Errors returned by studio entry points. Guard errors are returned after the
// matching user-visible message has been set; ErrBusy leaves state untouched.
var (
	ErrBusy              = errors.New("studio: an operation is already in progress")
	ErrEmptyPrompt       = errors.New("studio: prompt is empty")
	ErrReviveIncomplete  = errors.New("studio: revival needs a prompt and a blueprint")
	ErrNothingToAnalyze  = errors.New("studio: no active structure to analyze")
	ErrEntryNotFound     = errors.New("studio: gallery entry not found")
	ErrInvalidMode       = errors.New("studio: unknown mode")
	ErrInvalidPanel      = errors.New("studio: unknown panel")
	ErrInvalidTransition = errors.New("studio: invalid transition")
)

// User-visible messages.
const (
	MsgEmptyPrompt    = "Please whisper a vision into the prompt."
	MsgReviveGuard    = "A blueprint and a revival prompt are required."
	MsgAnalyzeGuard   = "A structure must be summoned before it can be analyzed."
	MsgSummonFailed   = "The spirits failed to materialize the vision. Please try again."
	MsgReviveFailed   = "The blueprint resists resurrection. Please try again."
	MsgAnalysisFailed = "The architectural spirits are conflicted. Analysis failed."
	MsgShuttingDown   = "The studio is closing. Please try again later."
)

// Operation outcomes reported to the Observer.
const (
	OutcomeSuccess       = "success"
	OutcomeProviderError = "provider_error"
	OutcomeParseError    = "parse_error"
	OutcomeRejected      = "rejected"
)

// outcomeOf classifies a failed operation for metrics.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case textgen.IsParseError(err):
		return OutcomeParseError
	default:
		return OutcomeProviderError
	}
}
