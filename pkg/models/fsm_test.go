package models

import (
	"errors"
	"testing"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    RobotState
		to      RobotState
		wantErr bool
	}{
		// Valid transitions
		{"Searching to Approaching", StateSearching, StateApproaching, false},
		{"Approaching to Searching", StateApproaching, StateSearching, false},
		{"Approaching to Spinning", StateApproaching, StateSpinning, false},

		// Invalid transitions
		{"Searching to Spinning", StateSearching, StateSpinning, true},
		{"Searching to Searching", StateSearching, StateSearching, true},
		{"Spinning to Searching", StateSpinning, StateSearching, true},
		{"Spinning to Approaching", StateSpinning, StateApproaching, true},
		{"Unknown source", RobotState("IDLE"), StateSearching, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%v, %v) error = %v, wantErr %v",
					tt.from, tt.to, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error %v does not wrap ErrInvalidTransition", err)
			}
		})
	}
}

func TestIsTerminalState(t *testing.T) {
	tests := []struct {
		name     string
		state    RobotState
		expected bool
	}{
		{"Spinning is terminal", StateSpinning, true},
		{"Searching is not terminal", StateSearching, false},
		{"Approaching is not terminal", StateApproaching, false},
		{"Unknown is not terminal", RobotState("IDLE"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsTerminalState(tt.state)
			if result != tt.expected {
				t.Errorf("IsTerminalState(%v) = %v, want %v", tt.state, result, tt.expected)
			}
		})
	}
}

func TestParseState(t *testing.T) {
	for _, s := range States() {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Errorf("ParseState(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseState("searching"); err == nil {
		t.Error("ParseState accepted a lowercase name")
	}
}

func TestClassifyMass(t *testing.T) {
	tests := []struct {
		mass     float64
		expected MassClass
	}{
		{0.2, MassLight},
		{0.99, MassLight},
		{1.0, MassHeavy},
		{5, MassHeavy},
	}

	for _, tt := range tests {
		if got := ClassifyMass(tt.mass); got != tt.expected {
			t.Errorf("ClassifyMass(%v) = %v, want %v", tt.mass, got, tt.expected)
		}
	}
}

func TestBoxName(t *testing.T) {
	if got := BoxName("CAIXA", 7); got != "CAIXA07" {
		t.Errorf("BoxName = %q, want CAIXA07", got)
	}
	if got := BoxName("CAIXA", 20); got != "CAIXA20" {
		t.Errorf("BoxName = %q, want CAIXA20", got)
	}
}
