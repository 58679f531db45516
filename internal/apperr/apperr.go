package apperr

import (
	"errors"
	"net/http"
)

// Code is the stable, client-facing identifier of a business error.
type Code string

const (
	CodeStationNotFound         Code = "STATION_NOT_FOUND"
	CodeChargerNotFound         Code = "CHARGER_NOT_FOUND"
	CodeSessionNotFound         Code = "SESSION_NOT_FOUND"
	CodeSubscriptionNotFound    Code = "SUBSCRIPTION_NOT_FOUND"
	CodeRouteNotFound           Code = "NOT_FOUND"
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeChargerNotAvailable     Code = "CHARGER_NOT_AVAILABLE"
	CodeSessionAlreadyCompleted Code = "SESSION_ALREADY_COMPLETED"
	CodeDuplicateEmail          Code = "DUPLICATE_EMAIL"
	CodeDuplicateStationCode    Code = "DUPLICATE_STATION_CODE"
	CodeInvalidCredentials      Code = "INVALID_CREDENTIALS"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeForbidden               Code = "FORBIDDEN"
	CodeValidation              Code = "VALIDATION_ERROR"
	CodeTooManyRequests         Code = "TOO_MANY_REQUESTS"
	CodePushDisabled            Code = "PUSH_DISABLED"
	CodeInternal                Code = "INTERNAL_ERROR"
)

// Error is a business error carrying its HTTP status and a message safe to show to callers.
type Error struct {
	Code    Code
	Status  int
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Is matches any *Error with the same code, so errors built with New compare
// equal to the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates an error for the given code.
func New(code Code, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Validation creates a VALIDATION_ERROR with the given message.
func Validation(message string) *Error {
	return New(CodeValidation, http.StatusBadRequest, message)
}

var (
	ErrStationNotFound         = New(CodeStationNotFound, http.StatusNotFound, "charging station not found")
	ErrChargerNotFound         = New(CodeChargerNotFound, http.StatusNotFound, "charger not found")
	ErrSessionNotFound         = New(CodeSessionNotFound, http.StatusNotFound, "charging session not found")
	ErrSubscriptionNotFound    = New(CodeSubscriptionNotFound, http.StatusNotFound, "subscription not found")
	ErrRouteNotFound           = New(CodeRouteNotFound, http.StatusNotFound, "resource not found")
	ErrInvalidStatusTransition = New(CodeInvalidStatusTransition, http.StatusBadRequest, "invalid charger status transition")
	ErrChargerNotAvailable     = New(CodeChargerNotAvailable, http.StatusConflict, "charger is not available")
	ErrSessionAlreadyCompleted = New(CodeSessionAlreadyCompleted, http.StatusConflict, "charging session is already completed")
	ErrDuplicateEmail          = New(CodeDuplicateEmail, http.StatusConflict, "email is already in use")
	ErrDuplicateStationCode    = New(CodeDuplicateStationCode, http.StatusConflict, "station code is already in use")
	ErrInvalidCredentials      = New(CodeInvalidCredentials, http.StatusUnauthorized, "invalid email or password")
	ErrUnauthorized            = New(CodeUnauthorized, http.StatusUnauthorized, "authentication is required")
	ErrForbidden               = New(CodeForbidden, http.StatusForbidden, "access is denied")
	ErrTooManyRequests         = New(CodeTooManyRequests, http.StatusTooManyRequests, "too many requests")
	ErrPushDisabled            = New(CodePushDisabled, http.StatusServiceUnavailable, "push notifications are not configured")
	ErrInternal                = New(CodeInternal, http.StatusInternalServerError, "internal server error")
)

// From extracts the business error from err. Anything that is not an *Error
// becomes ErrInternal and ok is false.
func From(err error) (appErr *Error, ok bool) {
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return ErrInternal, false
}
