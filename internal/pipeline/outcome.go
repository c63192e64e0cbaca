package pipeline

import (
	"suggestbot/internal/requests"
	"suggestbot/internal/stage"
)

// Outcome aggregates what happened to one request.
type Outcome struct {
	RequestID string
	// Claimed is false when the request was not in a claimable state and no
	// stage ran.
	Claimed bool
	Status  requests.BotStatus
	Stages  []stage.Result
	Error   string
}

// StagesRun lists the stages that executed, in order.
func (o Outcome) StagesRun() []string {
	names := make([]string, 0, len(o.Stages))
	for _, result := range o.Stages {
		names = append(names, result.Stage)
	}
	return names
}

// StagesFailed lists the stages that reported failure.
func (o Outcome) StagesFailed() []string {
	names := []string{}
	for _, result := range o.Stages {
		if !result.Success {
			names = append(names, result.Stage)
		}
	}
	return names
}

// Errored reports whether the request ended in the error state.
func (o Outcome) Errored() bool {
	return o.Status == requests.BotStatusError
}

// Stage returns the result for name, if that stage ran.
func (o Outcome) Stage(name string) (stage.Result, bool) {
	for _, result := range o.Stages {
		if result.Stage == name {
			return result, true
		}
	}
	return stage.Result{}, false
}
