package agentcore

import (
	"errors"
	"fmt"
)

// Kind identifies one of the five error kinds the pipeline raises, each
// with its own propagation policy (see the error-handling design).
type Kind string

const (
	KindConfig    Kind = "config"
	KindUpstream  Kind = "upstream"
	KindStrategy  Kind = "strategy"
	KindChain     Kind = "chain"
	KindInvariant Kind = "invariant"
)

// Error wraps an underlying error with the kind and operation that raised
// it, satisfying both error and Unwrap() so callers can dispatch policy via
// errors.As/errors.Is while fmt.Errorf("%w", ...) keeps working for the
// inner error's own chain.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigError wraps err as a ConfigError raised during op. ConfigError is
// surfaced to the caller; the agent refuses to start.
func NewConfigError(op string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

// NewUpstreamError wraps err as an UpstreamError raised during op (fetcher,
// advisor). Logged; the tick continues, not surfaced.
func NewUpstreamError(op string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

// NewStrategyError wraps err as a StrategyError raised during op. Logged per
// strategy; other strategies proceed.
func NewStrategyError(op string, err error) *Error {
	return &Error{Kind: KindStrategy, Op: op, Err: err}
}

// NewChainError wraps err as a ChainError raised during op (executor
// submit). Retried per policy; terminal failure becomes a failed Result.
func NewChainError(op string, err error) *Error {
	return &Error{Kind: KindChain, Op: op, Err: err}
}

// NewInvariantError wraps err as an InvariantError. Fatal to the owning
// task; the agent stays up; logged loudly.
func NewInvariantError(op string, err error) *Error {
	return &Error{Kind: KindInvariant, Op: op, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
