package models

import "testing"

func TestStatusValid(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusProcessing, true},
		{StatusProcessed, true},
		{Status(""), false},
		{Status("FAILED"), false},
	}

	for _, tc := range cases {
		if got := tc.status.Valid(); got != tc.want {
			t.Errorf("Status(%q).Valid() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"processing to processed", StatusProcessing, StatusProcessed, true},
		{"processed is terminal", StatusProcessed, StatusProcessing, false},
		{"processed to processed", StatusProcessed, StatusProcessed, false},
		{"processing to processing", StatusProcessing, StatusProcessing, false},
		{"unknown state", Status("FAILED"), StatusProcessed, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
				t.Errorf("CanTransitionTo(%q -> %q) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}

	if StatusProcessing.Terminal() {
		t.Error("PROCESSING must not be terminal")
	}
	if !StatusProcessed.Terminal() {
		t.Error("PROCESSED must be terminal")
	}
}
