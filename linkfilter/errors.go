// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package linkfilter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Sentinel errors for filter operations.
var (
	// ErrExpressionCheck is returned when an expression fails syntax or type checking.
	ErrExpressionCheck = errors.New("link filter expression check failed")

	// ErrEvaluation is returned when evaluating a filter fails.
	ErrEvaluation = errors.New("link filter evaluation failed")

	// ErrInvalidResult is returned when a filter does not produce a bool.
	ErrInvalidResult = errors.New("link filter returned a non-boolean result")
)

// Location is one diagnostic in an expression.
type Location struct {
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

// Details lists the diagnostics of a rejected expression.
type Details struct {
	Errors []Location `json:"errors,omitempty"`
	Source string     `json:"source,omitempty"`
}

// AsJSON returns the details as a JSON string.
func (d *Details) AsJSON() string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal JSON: %s"}`, err)
	}
	return string(b)
}

func detailsFromIssues(source string, issues *cel.Issues) Details {
	d := Details{Source: source, Errors: make([]Location, 0, len(issues.Errors()))}
	for _, err := range issues.Errors() {
		d.Errors = append(d.Errors, Location{
			Line: err.Location.Line(),
			Col:  err.Location.Column(),
			Msg:  err.Message,
		})
	}
	return d
}

// ParseError is a syntax error in a filter expression.
type ParseError struct {
	Details
	err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("link filter parse error in %q: %s", e.Source, e.err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.err
}

// CheckError is a type error in a filter expression.
type CheckError struct {
	Details
	err error
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	return fmt.Sprintf("link filter check error in %q: %s", e.Source, e.err)
}

// Unwrap returns the underlying error.
func (e *CheckError) Unwrap() error {
	return e.err
}
