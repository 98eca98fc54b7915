package analyzer

import (
	"errors"
	"fmt"
)

// Kind classifies analysis failures. The string value is a stable tag that
// is safe to expose to clients.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNoIngredientsFound Kind = "no_ingredients_found"
	KindProcessingFailure  Kind = "processing_failure"
)

// MaxSampleLength caps the normalized text echoed back with
// KindNoIngredientsFound.
const MaxSampleLength = 200

// Error is the only error type Analyze returns
type Error struct {
	Kind    Kind
	Message string
	// Sample holds the start of the normalized input for
	// KindNoIngredientsFound, capped at MaxSampleLength characters.
	Sample string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindProcessingFailure for errors that did
// not come from Analyze.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindProcessingFailure
}

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func noIngredients(sample string) *Error {
	return &Error{Kind: KindNoIngredientsFound, Message: "No ingredients found", Sample: sample}
}

func processingFailure(msg string, err error) *Error {
	return &Error{Kind: KindProcessingFailure, Message: msg, Err: err}
}

// sample truncates s to MaxSampleLength runes, marking the cut with "..."
func sample(s string) string {
	r := []rune(s)
	if len(r) <= MaxSampleLength {
		return s
	}
	return string(r[:MaxSampleLength]) + "..."
}
