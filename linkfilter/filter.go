// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package linkfilter

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

const (
	// DefaultMaxExpressionLength bounds the size of a filter expression.
	DefaultMaxExpressionLength = 4096

	// DefaultCostLimit bounds the runtime cost of one evaluation.
	DefaultCostLimit = 100000
)

// Candidate is a link presented to a filter.
type Candidate struct {
	Rel      []string
	Type     string
	Href     string
	MimeType string
	Source   string
}

func (c Candidate) activation() map[string]any {
	rel := c.Rel
	if rel == nil {
		rel = []string{}
	}
	return map[string]any{
		"rel":       rel,
		"link_type": c.Type,
		"href":      c.Href,
		"mime_type": c.MimeType,
		"source":    c.Source,
	}
}

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func environment() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable("rel", cel.ListType(cel.StringType)),
			cel.Variable("link_type", cel.StringType),
			cel.Variable("href", cel.StringType),
			cel.Variable("mime_type", cel.StringType),
			cel.Variable("source", cel.StringType),
		)
	})
	return env, envErr
}

type options struct {
	maxExpressionLength int
	costLimit           uint64
}

// Option configures a Filter.
type Option func(*options)

// WithMaxExpressionLength overrides DefaultMaxExpressionLength.
func WithMaxExpressionLength(n int) Option {
	return func(o *options) {
		o.maxExpressionLength = n
	}
}

// WithCostLimit overrides DefaultCostLimit.
func WithCostLimit(limit uint64) Option {
	return func(o *options) {
		o.costLimit = limit
	}
}

// Filter is a compiled expression. It is safe for concurrent use.
type Filter struct {
	source  string
	program cel.Program
}

// New compiles expr. The expression must evaluate to a bool.
func New(expr string, opts ...Option) (*Filter, error) {
	o := options{
		maxExpressionLength: DefaultMaxExpressionLength,
		costLimit:           DefaultCostLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ast, err := check(expr, o.maxExpressionLength)
	if err != nil {
		return nil, err
	}
	e, err := environment()
	if err != nil {
		return nil, err
	}
	program, err := e.Program(ast, cel.CostLimit(o.costLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to create program for %q: %w", expr, err)
	}
	return &Filter{source: expr, program: program}, nil
}

// Check validates expr without building a program. It is meant for
// configuration validation.
func Check(expr string) error {
	_, err := check(expr, DefaultMaxExpressionLength)
	return err
}

func check(expr string, maxLen int) (*cel.Ast, error) {
	if len(expr) > maxLen {
		return nil, fmt.Errorf("%w: expression length %d exceeds maximum of %d",
			ErrExpressionCheck, len(expr), maxLen)
	}
	e, err := environment()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	parsed, issues := e.Parse(expr)
	if issues.Err() != nil {
		return nil, &ParseError{
			Details: detailsFromIssues(expr, issues),
			err:     fmt.Errorf("%w: %w", ErrExpressionCheck, issues.Err()),
		}
	}
	checked, issues := e.Check(parsed)
	if issues.Err() != nil {
		return nil, &CheckError{
			Details: detailsFromIssues(expr, issues),
			err:     fmt.Errorf("%w: %w", ErrExpressionCheck, issues.Err()),
		}
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression must return bool, got %s",
			ErrExpressionCheck, checked.OutputType())
	}
	return checked, nil
}

// Source returns the expression text.
func (f *Filter) Source() string {
	return f.source
}

// Accept evaluates the filter for c.
func (f *Filter) Accept(c Candidate) (bool, error) {
	out, _, err := f.program.Eval(c.activation())
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrEvaluation, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrInvalidResult, out.Value())
	}
	return b, nil
}
