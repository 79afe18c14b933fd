package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoProgress is returned by CompleteWorkout when no set has been completed.
	// The session stays active.
	ErrNoProgress = errors.New("no completed sets in session")

	// ErrSessionFinished matches any mutation attempted after a terminal transition.
	ErrSessionFinished = errors.New("session is finished")

	// ErrSessionCompleted and ErrSessionDiscarded both match ErrSessionFinished.
	ErrSessionCompleted = fmt.Errorf("%w: completed", ErrSessionFinished)
	ErrSessionDiscarded = fmt.Errorf("%w: discarded", ErrSessionFinished)

	// ErrSessionNotFound is returned by the Manager for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
)
