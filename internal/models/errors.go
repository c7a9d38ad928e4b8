package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes. Every failure surfaced by the moderation core carries one of these.
const (
	CodeNotFound               = "NOT_FOUND"
	CodePermissionDenied       = "PERMISSION_DENIED"
	CodeInvalidState           = "INVALID_STATE"
	CodeConflict               = "CONFLICT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeSelfTargetingForbidden = "SELF_TARGETING_FORBIDDEN"
	CodeStoreUnavailable       = "STORE_UNAVAILABLE"
)

// Reasons refine a code with the workflow outcome that produced it.
const (
	ReasonAlreadyMember        = "ALREADY_MEMBER"
	ReasonClanHidden           = "CLAN_HIDDEN"
	ReasonClanBanned           = "CLAN_BANNED"
	ReasonRequestPending       = "REQUEST_PENDING"
	ReasonReapplicationBlocked = "REAPPLICATION_BLOCKED"
	ReasonNoPendingRequest     = "NO_PENDING_REQUEST"
	ReasonInvalidRequestStatus = "INVALID_REQUEST_STATUS"
	ReasonAlreadyBanned        = "ALREADY_BANNED"
	ReasonNotBanned            = "NOT_BANNED"
	ReasonSelfBan              = "SELF_BAN"
	ReasonSelfRoleChange       = "SELF_ROLE_CHANGE"
	ReasonCannotReportSelf     = "CANNOT_REPORT_SELF"
	ReasonAlreadyDismissed     = "ALREADY_DISMISSED"
	ReasonAppealWindowClosed   = "APPEAL_WINDOW_CLOSED"
	ReasonPermanentBan         = "PERMANENT_BAN"
	ReasonAppealPending        = "APPEAL_PENDING"
	ReasonAppealBlocked        = "APPEAL_BLOCKED"
	ReasonInvalidAppealStatus  = "INVALID_APPEAL_STATUS"
	ReasonNotEligible          = "NOT_ELIGIBLE"
	ReasonInvalidTransition    = "INVALID_TRANSITION"
	ReasonOwnerMustTransfer    = "OWNER_MUST_TRANSFER"
	ReasonActorBanned          = "ACTOR_BANNED"
	ReasonNotOwner             = "NOT_OWNER"
	ReasonMemberBanned         = "MEMBER_BANNED"
	ReasonStaleOwner           = "STALE_OWNER"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Reason  string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithReason returns a copy of the error tagged with a reason sub-code.
func (e *AppError) WithReason(reason string) *AppError {
	cp := *e
	cp.Reason = reason
	return &cp
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewPermissionDeniedError(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
	}
}

func NewInvalidStateError(reason, message string) *AppError {
	return &AppError{
		Code:    CodeInvalidState,
		Reason:  reason,
		Message: message,
	}
}

func NewConflictError(reason, message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Reason:  reason,
		Message: message,
	}
}

func NewSelfTargetingError(reason, message string) *AppError {
	return &AppError{
		Code:    CodeSelfTargetingForbidden,
		Reason:  reason,
		Message: message,
	}
}

// NewStoreUnavailableError wraps an infrastructure failure. Callers retry by policy.
func NewStoreUnavailableError(err error) *AppError {
	return &AppError{
		Code:    CodeStoreUnavailable,
		Message: "Persistence store unavailable",
		Err:     err,
	}
}

// HasCode reports whether err is an *AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// HasReason reports whether err is an *AppError with the given reason.
func HasReason(err error, reason string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Reason == reason
}

// ReasonOf returns the reason sub-code of err, or "" if it carries none.
func ReasonOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error:  appErr.Message,
			Code:   appErr.Code,
			Reason: appErr.Reason,
		}
		if appErr.Err != nil && appErr.Code != CodeStoreUnavailable {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
