package cli

import "github.com/davarch/deploy-pilot/internal/domain"

const (
	ExitOK               = 0
	ExitInternal         = 1
	ExitInvalidArguments = 2
	ExitUnauthorized     = 3
	ExitUnavailable      = 4
	ExitTimeout          = 5
	ExitCancelled        = 130
)

// ExitCode maps a run outcome to the process exit status.
func ExitCode(o domain.Outcome) int {
	switch o {
	case domain.OutcomeSuccess:
		return ExitOK
	case domain.OutcomeInvalidArguments:
		return ExitInvalidArguments
	case domain.OutcomeUnauthorized:
		return ExitUnauthorized
	case domain.OutcomeDmsUnavailable:
		return ExitUnavailable
	case domain.OutcomePollTimeout:
		return ExitTimeout
	case domain.OutcomeCancelled:
		return ExitCancelled
	default:
		return ExitInternal
	}
}
