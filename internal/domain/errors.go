package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
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

// Is matches by code, so a sentinel wrapped via WithError still satisfies
// errors.Is against the original.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing API key",
		StatusCode: 401,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrEmployeeNotFound = &AppError{
		Code:       "EMPLOYEE_NOT_FOUND",
		Message:    "Employee not found",
		StatusCode: 404,
	}

	ErrEmployeeExists = &AppError{
		Code:       "EMPLOYEE_ALREADY_EXISTS",
		Message:    "Employee with this employee_id already exists",
		StatusCode: 409,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in any usable frame",
		StatusCode: 422,
	}

	ErrNoEnrollment = &AppError{
		Code:       "NO_ENROLLMENT",
		Message:    "No face templates enrolled for this identity",
		StatusCode: 404,
	}

	ErrInvalidTemplate = &AppError{
		Code:       "INVALID_TEMPLATE",
		Message:    "Template vector has wrong dimensionality",
		StatusCode: 422,
	}

	// ErrAmbiguousMatch is never surfaced to callers as a match: the matcher
	// maps it to an empty MatchResult. It exists so the condition is
	// distinguishable in logs and tests from a plain miss.
	ErrAmbiguousMatch = &AppError{
		Code:       "AMBIGUOUS_MATCH",
		Message:    "Two identities are indistinguishably close to the query",
		StatusCode: 422,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}
)
