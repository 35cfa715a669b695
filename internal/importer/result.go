package importer

import "fmt"

// Result is the final outcome of one import run, handed to the completion
// callback exactly once. Logs are ordered, human-readable and never
// reordered; Message is a one-line summary suitable for a headline.
type Result struct {
	State   State
	Logs    []string
	Message string
	Success bool
}

// accumulator collects the user-facing log for one run. It is created
// empty per invocation, appended to throughout and finalized once; the
// Result it produces owns a copy of the log so later appends can never
// leak into a delivered result.
type accumulator struct {
	logs []string
}

func (a *accumulator) logf(format string, args ...any) {
	a.logs = append(a.logs, fmt.Sprintf(format, args...))
}

func (a *accumulator) finalize(state State, success bool, message string) Result {
	logs := make([]string, len(a.logs))
	copy(logs, a.logs)
	return Result{
		State:   state,
		Logs:    logs,
		Message: message,
		Success: success,
	}
}
