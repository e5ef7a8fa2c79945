package store

import (
	"errors"
	"time"

	"github.com/psantana5/boxbot/pkg/models"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("run not found")

// Run is one execution of a controller
type Run struct {
	ID         string
	Controller string
	StartedAt  time.Time
	EndedAt    time.Time // zero while the run is active
	Target     string
	FinalState models.RobotState
	Ticks      int
}

// Transition is a recorded navigation state change
type Transition struct {
	RunID    string
	Tick     int
	From     models.RobotState
	To       models.RobotState
	Distance float64
	At       time.Time
}

// Store records controller runs. Both the memory and SQLite stores
// implement it.
type Store interface {
	CreateRun(run *Run) error
	FinishRun(id string, endedAt time.Time, finalState models.RobotState, ticks int) error
	GetRun(id string) (*Run, error)
	ListRuns() ([]*Run, error)

	AddTransition(tr *Transition) error
	GetTransitions(runID string) ([]*Transition, error)

	Close() error
}
