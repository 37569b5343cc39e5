// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
)

// ErrStateInvariant is wrapped by every StateInvariantError.
var ErrStateInvariant = errors.New("pipeline state invariant violated")

// StageError names the stage that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StateInvariantError reports a State that breaks the 1:1 correspondence
// between stage outputs, or an initial State that is not fresh.
type StateInvariantError struct {
	Stage  string
	Reason string
}

func (e *StateInvariantError) Error() string {
	return fmt.Sprintf("%v after %s: %s", ErrStateInvariant, e.Stage, e.Reason)
}

func (e *StateInvariantError) Unwrap() error { return ErrStateInvariant }
