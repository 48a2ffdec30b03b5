package service

import (
	"errors"
	"fmt"
)

// ErrNotProvider is returned when an operation requires a provider profile.
var ErrNotProvider = errors.New("a provider profile is required")

// ErrNotOwner is returned when a caller operates on a resource they do not own.
var ErrNotOwner = errors.New("resource is owned by another profile")

// ValidationError reports a missing or malformed input field. The workflow
// state is never advanced on a validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Step identifies a stop in the onboarding workflow.
type Step string

const (
	StepRole      Step = "role"
	StepPersonal  Step = "personal"
	StepDocuments Step = "documents"
	StepFinished  Step = "finished"
)

// StepError reports that onboarding input arrived with an earlier step's
// prerequisite missing. Step names the earliest step the caller must return
// to — prerequisites are never silently defaulted.
type StepError struct {
	Step Step
}

func (e *StepError) Error() string {
	return "onboarding prerequisite missing; return to step " + string(e.Step)
}
