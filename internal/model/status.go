package model

import "fmt"

// JobState is the lifecycle of a single runner.
type JobState string

const (
	JobIdle     JobState = "idle"
	JobRunning  JobState = "running"
	JobFinished JobState = "finished"
)

var allowedTransitions = map[JobState]map[JobState]bool{
	JobIdle: {
		JobRunning: true,
	},
	JobRunning: {
		JobFinished: true,
	},
	JobFinished: {
		JobIdle: true, // explicit reset only
	},
}

func IsKnownState(state JobState) bool {
	_, ok := allowedTransitions[state]
	return ok
}

func CanTransition(from, to JobState) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionJobState(state *JobState, to JobState) error {
	from := *state
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid job state transition: %q -> %q", from, to)
	}
	*state = to
	return nil
}
