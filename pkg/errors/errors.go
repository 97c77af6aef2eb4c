package errors

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Governance errors.
var (
	// ErrIllegalTransition is returned when a visibility transition violates the state machine rules.
	ErrIllegalTransition = errors.New("illegal visibility transition")
	// ErrNoUpgradeToMain is returned when a transition targets the main feed state.
	ErrNoUpgradeToMain = errors.New("promotion to main feed is never admin-driven")
	// ErrElevatedRoleRequired is returned when reversing a hidden state without super admin role.
	ErrElevatedRoleRequired = errors.New("elevated role required to reverse hidden state")
	// ErrReasonRequired is returned when a down-ranking transition is missing a reason.
	ErrReasonRequired = errors.New("reason is required for this action")
	// ErrInvariantViolation is returned when feed data fails the main feed invariant.
	ErrInvariantViolation = errors.New("feed invariant violation")
	// ErrUpstreamIntegrity is returned when pipeline content carries admin-only fields.
	ErrUpstreamIntegrity = errors.New("upstream pipeline set admin-only fields")
	// ErrCampaignNotFound is returned when a campaign cannot be found.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrSuggestionNotFound is returned when a suggestion cannot be found.
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrSuggestionTerminal is returned when applying or rejecting an already terminated suggestion.
	ErrSuggestionTerminal = errors.New("suggestion already terminated")
	// ErrSuggestionNotApplied is returned when marking execution before the suggestion was applied.
	ErrSuggestionNotApplied = errors.New("suggestion must be applied before execution")
	// ErrSuggestionExpired is returned when acting on a suggestion past its expiry.
	ErrSuggestionExpired = errors.New("suggestion expired")
	// ErrLearningDisabled is returned when the trust scoring subsystem has tripped its breaker.
	ErrLearningDisabled = errors.New("trust learning subsystem disabled")
)

// New creates a new error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// Wrap wraps an error with additional context, keeping the original in the
// chain so errors.Is still matches the sentinel underneath.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// LogWithError logs the error with context and returns a wrapped error. Use this for standardized error logging across services.
func LogWithError(ctx context.Context, log *zap.Logger, msg string, err error, fields ...zap.Field) error {
	if log != nil {
		if ctx != nil {
			if reqID, ok := ctx.Value("request_id").(string); ok && reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
		}
		log.Error(msg, append(fields, zap.Error(err))...)
	}
	return Wrap(err, msg)
}
