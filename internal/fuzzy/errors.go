// v0
// internal/fuzzy/errors.go
package fuzzy

import "errors"

// Configuration errors. They are returned while building variables and
// engines, never during inference.
var (
	ErrInvalidShape      = errors.New("invalid membership function")
	ErrInvalidUniverse   = errors.New("invalid universe of discourse")
	ErrDuplicateTerm     = errors.New("duplicate term")
	ErrDuplicateVariable = errors.New("duplicate variable")
	ErrUnknownVariable   = errors.New("unknown variable")
	ErrUnknownTerm       = errors.New("unknown term")
	ErrEmptyRuleBase     = errors.New("rule base is empty")
	ErrInvalidRule       = errors.New("invalid rule")
	ErrInvalidResolution = errors.New("invalid output resolution")
	ErrInvalidFallback   = errors.New("invalid fallback value")
)

// Input errors returned by Engine.Infer.
var (
	ErrMissingInput = errors.New("missing input value")
	ErrInvalidInput = errors.New("input value is NaN")
)
