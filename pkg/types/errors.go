package types

import (
	"errors"
	"fmt"
)

// ErrRiskBlocked is the sentinel wrapped by every RiskBlockedError so call
// sites can branch with errors.Is without caring which check failed.
var ErrRiskBlocked = errors.New("risk blocked")

// RiskBlockedError is an expected, non-fatal rejection by the risk
// governor. It is always audited and never retried automatically.
type RiskBlockedError struct {
	Code   ReasonCode
	Reason string
}

func (e *RiskBlockedError) Error() string {
	return fmt.Sprintf("risk blocked (%s): %s", e.Code, e.Reason)
}

func (e *RiskBlockedError) Unwrap() error {
	return ErrRiskBlocked
}

// ConfigValidationError rejects a malformed config before any state change.
type ConfigValidationError struct {
	Field  string
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid config field %s: %s", e.Field, e.Reason)
}

// ModeTransitionError is returned when a trading-mode change fails closed.
type ModeTransitionError struct {
	Code   ReasonCode
	Reason string
}

func (e *ModeTransitionError) Error() string {
	return fmt.Sprintf("mode transition rejected (%s): %s", e.Code, e.Reason)
}

// ExternalAPIError wraps a quote or order failure from the exchange
// collaborator. The cycle retries with bounded backoff, then falls back to
// synthetic pricing and skips order actions for that market.
type ExternalAPIError struct {
	Op  string
	Err error
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("exchange %s: %v", e.Op, e.Err)
}

func (e *ExternalAPIError) Unwrap() error {
	return e.Err
}

// PersistenceError is fatal for the triggering operation: an audit write
// that fails aborts the action rather than proceeding un-audited.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
