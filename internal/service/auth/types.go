package auth

import (
	internaljwt "support-console-backend/internal/jwt"
	"support-console-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type RegisterOperatorParams struct {
	Email       string
	Name        string
	Password    string
	Role        string
	AffiliateID string
}

type LoginParams struct {
	Email    string
	Password string
}

type Identity struct {
	OperatorID  string
	Email       string
	Role        string
	AffiliateID string
}

type AuthResult struct {
	Operator model.OperatorItem
	Tokens   internaljwt.TokenResponse
}

type ProfileResult struct {
	Operator model.OperatorItem
}
