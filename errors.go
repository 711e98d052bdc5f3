package deepresearch

import "errors"

// Pipeline errors shared across stages. Stages wrap these with fmt.Errorf
// and %w; callers match with errors.Is.
var (
	// ErrInvalidPhaseTransition is returned when a session is asked to move
	// to a phase it cannot reach, including any advance on a completed
	// session. The session state is left untouched.
	ErrInvalidPhaseTransition = errors.New("invalid phase transition")

	// ErrSearchUnavailable is returned when the search provider stays
	// unreachable after bounded retries for every query of a research run.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrGenerationUnavailable is returned when a generation call keeps
	// failing after retries, or keeps producing structured output that
	// cannot be parsed after a corrective re-prompt.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrInsufficientFindings is returned when research gathered too little
	// material to write a report. No partial report is produced.
	ErrInsufficientFindings = errors.New("insufficient findings")

	// ErrAmbiguousApproval is returned when a brief approval reply cannot
	// be classified as approval or rejection. The reply is re-asked, never
	// guessed.
	ErrAmbiguousApproval = errors.New("ambiguous approval")
)
