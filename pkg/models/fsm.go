package models

import (
	"errors"
	"fmt"
)

// RobotState is the navigation controller state
type RobotState string

// Navigation states
const (
	StateSearching   RobotState = "SEARCHING"   // Steering towards the target box from afar
	StateApproaching RobotState = "APPROACHING" // Within reach, closing in slowly
	StateSpinning    RobotState = "SPINNING"    // Arrived, rotating in place until the run ends
)

// ErrInvalidTransition is wrapped by every TransitionError
var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionError reports a rejected state change
type TransitionError struct {
	From RobotState
	To   RobotState
}

func (e *TransitionError) Error() string {
	if _, known := validTransitions[e.From]; !known {
		return fmt.Sprintf("unknown source state: %s", e.From)
	}
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// validTransitions maps from-state to allowed to-states
var validTransitions = map[RobotState]map[RobotState]bool{
	StateSearching: {
		StateApproaching: true, // Searching → Approaching (target within approach distance)
	},
	StateApproaching: {
		StateSearching: true, // Approaching → Searching (target lost)
		StateSpinning:  true, // Approaching → Spinning (arrived)
	},
	// Terminal state (no transitions allowed)
	StateSpinning: {},
}

// States lists every navigation state in declaration order
func States() []RobotState {
	return []RobotState{StateSearching, StateApproaching, StateSpinning}
}

// ValidateTransition checks if a state transition is valid
func ValidateTransition(from, to RobotState) error {
	allowedStates, exists := validTransitions[from]
	if !exists || !allowedStates[to] {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// IsTerminalState returns true if the state is terminal (no further transitions)
func IsTerminalState(state RobotState) bool {
	allowed, exists := validTransitions[state]
	return exists && len(allowed) == 0
}

// ParseState parses a state name as printed by String
func ParseState(s string) (RobotState, error) {
	state := RobotState(s)
	if _, ok := validTransitions[state]; !ok {
		return "", fmt.Errorf("unknown robot state %q", s)
	}
	return state, nil
}

func (s RobotState) String() string {
	return string(s)
}
