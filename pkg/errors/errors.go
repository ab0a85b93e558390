package errors

import "fmt"

// AppError represents a custom application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Gate error codes
const (
	ErrCodeTokenInvalid               = "TOKEN_INVALID"
	ErrCodeRefreshFailed              = "REFRESH_FAILED"
	ErrCodeMissingRole                = "MISSING_ROLE"
	ErrCodeInsufficientRole           = "INSUFFICIENT_ROLE"
	ErrCodeFeatureDisabled            = "FEATURE_DISABLED"
	ErrCodeProductionMisconfiguration = "PRODUCTION_MISCONFIGURATION"
	ErrCodeInternalError              = "INTERNAL_ERROR"
	ErrCodeBadGateway                 = "BAD_GATEWAY"
)

// NewAppError creates a new application error
func NewAppError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Common errors
var (
	ErrTokenInvalid               = NewAppError(ErrCodeTokenInvalid, "Access token is invalid or expired", 401)
	ErrRefreshFailed              = NewAppError(ErrCodeRefreshFailed, "Session could not be refreshed", 401)
	ErrMissingRole                = NewAppError(ErrCodeMissingRole, "Access token carries no usable role", 401)
	ErrInsufficientRole           = NewAppError(ErrCodeInsufficientRole, "Role does not grant access to this route", 403)
	ErrFeatureDisabled            = NewAppError(ErrCodeFeatureDisabled, "Feature is disabled", 403)
	ErrProductionMisconfiguration = NewAppError(ErrCodeProductionMisconfiguration, "Auth bypass is enabled in production", 500)
	ErrBadGateway                 = NewAppError(ErrCodeBadGateway, "Upstream application is unavailable", 502)
	ErrInternal                   = NewAppError(ErrCodeInternalError, "Internal server error", 500)
)
