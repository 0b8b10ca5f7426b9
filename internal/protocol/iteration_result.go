package protocol

import "strings"

// Iteration results, named after buildbot's result codes.
const (
	ResultRunning   = "running"
	ResultSuccess   = "success"
	ResultWarnings  = "warnings"
	ResultFailure   = "failure"
	ResultSkipped   = "skipped"
	ResultException = "exception"
	ResultRetry     = "retry"
	ResultCancelled = "cancelled"
)

func NormalizeResult(result string) string {
	return strings.ToLower(strings.TrimSpace(result))
}

func IsValidResult(result string) bool {
	switch NormalizeResult(result) {
	case ResultRunning, ResultSuccess, ResultWarnings, ResultFailure, ResultSkipped, ResultException, ResultRetry, ResultCancelled:
		return true
	default:
		return false
	}
}

func IsFinishedResult(result string) bool {
	return IsValidResult(result) && NormalizeResult(result) != ResultRunning
}

func IsSuccessfulResult(result string) bool {
	switch NormalizeResult(result) {
	case ResultSuccess, ResultWarnings:
		return true
	default:
		return false
	}
}

// IsFailedResult reports a build step failure. Infrastructure results
// (exception, retry, cancelled, skipped) are unsuccessful but not failed.
func IsFailedResult(result string) bool {
	return NormalizeResult(result) == ResultFailure
}

// IsProductiveResult is the default productivity of a finished iteration:
// runs that never got to build the revision range are unproductive.
func IsProductiveResult(result string) bool {
	switch NormalizeResult(result) {
	case ResultException, ResultRetry, ResultCancelled, ResultSkipped:
		return false
	default:
		return IsFinishedResult(result)
	}
}
