package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error with a code and message.
// LeadID and RuleID carry enough context for an operator to intervene manually.
type DomainError struct {
	Code    string
	Message string
	LeadID  string
	RuleID  string
	Err     error
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.LeadID != "" {
		msg += fmt.Sprintf(" (lead %s", e.LeadID)
		if e.RuleID != "" {
			msg += fmt.Sprintf(", rule %s", e.RuleID)
		}
		msg += ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeInternal              = "INTERNAL_ERROR"
	ErrCodeNoEligibleAssignee    = "NO_ELIGIBLE_ASSIGNEE"
	ErrCodeUnknownTemplate       = "UNKNOWN_TEMPLATE"
	ErrCodeRepositoryWriteFailed = "REPOSITORY_WRITE_FAILED"
)

// Error constructors

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// NewNoEligibleAssigneeError is returned when a directive has no active rep to
// hand the lead to. The lead stays unassigned.
func NewNoEligibleAssigneeError(directiveType, ruleID string) error {
	return &DomainError{
		Code:    ErrCodeNoEligibleAssignee,
		Message: fmt.Sprintf("no active rep available for %s directive", directiveType),
		RuleID:  ruleID,
	}
}

// NewUnknownTemplateError is returned when a template id/channel pair is not
// configured.
func NewUnknownTemplateError(templateID, channel string) error {
	return &DomainError{
		Code:    ErrCodeUnknownTemplate,
		Message: fmt.Sprintf("template %q has no %q content", templateID, channel),
	}
}

// NewRepositoryWriteFailedError wraps a persistence failure that survived the
// degraded fallback write.
func NewRepositoryWriteFailedError(leadID, what string, err error) error {
	return &DomainError{
		Code:    ErrCodeRepositoryWriteFailed,
		Message: fmt.Sprintf("failed to persist %s", what),
		LeadID:  leadID,
		Err:     err,
	}
}

// WithLead returns a copy of err annotated with the lead id when err is a
// DomainError. Other errors are returned unchanged.
func WithLead(err error, leadID string) error {
	var de *DomainError
	if !errors.As(err, &de) {
		return err
	}
	cp := *de
	cp.LeadID = leadID
	return &cp
}

// Helper functions to check error types

func hasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return hasCode(err, ErrCodeInternal)
}

// IsNoEligibleAssignee checks if routing found nobody to assign.
func IsNoEligibleAssignee(err error) bool {
	return hasCode(err, ErrCodeNoEligibleAssignee)
}

// IsUnknownTemplate checks if the error is a template configuration error.
func IsUnknownTemplate(err error) bool {
	return hasCode(err, ErrCodeUnknownTemplate)
}

// IsRepositoryWriteFailed checks if persistence failed on both record shapes.
func IsRepositoryWriteFailed(err error) bool {
	return hasCode(err, ErrCodeRepositoryWriteFailed)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}
