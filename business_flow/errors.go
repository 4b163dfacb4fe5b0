package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Batch errors
	ErrUnknownTemplate      = errors.New("unknown message template")
	ErrGatewayNotConfigured = errors.New("sms gateway not configured")
	ErrNoRows               = errors.New("no rows supplied")
	ErrBatchCanceled        = errors.New("batch canceled")

	// Operator authentication errors
	ErrIncorrectCredentials = errors.New("incorrect username or password")
	ErrNoOperators          = errors.New("no operator credentials configured")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUnknownTemplate(err error) bool {
	return errors.Is(err, ErrUnknownTemplate)
}

func IsGatewayNotConfigured(err error) bool {
	return errors.Is(err, ErrGatewayNotConfigured)
}

func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}

func IsBatchCanceled(err error) bool {
	return errors.Is(err, ErrBatchCanceled)
}

func IsIncorrectCredentials(err error) bool {
	return errors.Is(err, ErrIncorrectCredentials)
}

// ErrorCode extracts the business error code, or "" when err is not a BusinessError
func ErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
