package model

import "testing"

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from JobState
		to   JobState
	}{
		{JobIdle, JobRunning},
		{JobRunning, JobFinished},
		{JobFinished, JobIdle},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from JobState
		to   JobState
	}{
		{JobIdle, JobFinished},
		{JobRunning, JobIdle},
		{JobRunning, JobRunning},
		{JobFinished, JobRunning},
		{"not_a_state", JobIdle},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestTransitionJobState_BlocksIllegalTransition(t *testing.T) {
	state := JobIdle
	if err := TransitionJobState(&state, JobFinished); err == nil {
		t.Fatalf("expected illegal transition error")
	}
	if state != JobIdle {
		t.Fatalf("state changed on rejected transition: %q", state)
	}
	if err := TransitionJobState(&state, JobRunning); err != nil {
		t.Fatalf("idle -> running: %v", err)
	}
	if state != JobRunning {
		t.Fatalf("expected running, got %q", state)
	}
}
