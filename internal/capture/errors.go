package capture

import (
	"errors"
	"fmt"
)

// Stage names the part of a capture that failed.
type Stage string

const (
	StageResource Stage = "resource"
	StageSpawn    Stage = "spawn"
	StageIO       Stage = "io"
)

var (
	ErrResource = errors.New("capture: resource error")
	ErrSpawn    = errors.New("capture: spawn error")
	ErrIO       = errors.New("capture: io error")
)

// Error is a fatal capture failure tagged with its stage.
type Error struct {
	Stage Stage
	Err   error
}

// NewError wraps err for stage. A nil err yields nil.
func NewError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: stage, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the stage sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrResource:
		return e.Stage == StageResource
	case ErrSpawn:
		return e.Stage == StageSpawn
	case ErrIO:
		return e.Stage == StageIO
	}
	return false
}

// StageOf returns the stage of the first *Error in err's chain.
func StageOf(err error) (Stage, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Stage, true
	}
	return "", false
}
