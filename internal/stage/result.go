package stage

import "time"

// Outcome labels used for logs and metrics.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Result is the outcome of one stage for one request.
type Result struct {
	Stage    string
	Success  bool
	Skipped  bool
	Reason   string
	Err      error
	Data     map[string]any
	Duration time.Duration
}

// Succeeded reports a stage that did its work.
func Succeeded(name string, data map[string]any) Result {
	return Result{Stage: name, Success: true, Data: data}
}

// Skipped reports a stage that decided not to act. Skips count as success.
func Skipped(name, reason string, data map[string]any) Result {
	return Result{Stage: name, Success: true, Skipped: true, Reason: reason, Data: data}
}

// Failed reports a stage that could not complete.
func Failed(name string, err error, data map[string]any) Result {
	return Result{Stage: name, Success: false, Err: err, Data: data}
}

// Outcome returns the metrics label for r.
func (r Result) Outcome() string {
	switch {
	case !r.Success:
		return OutcomeFailed
	case r.Skipped:
		return OutcomeSkipped
	default:
		return OutcomeSuccess
	}
}

// ErrorMessage returns the failure text, or "" on success.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
