package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound          = errors.New("loan not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidLoanParameters = errors.New("invalid loan parameters")
	ErrInvalidPaymentAmount  = errors.New("invalid payment amount")
	ErrInvalidStatusValue    = errors.New("invalid status value")
	ErrLoanAlreadyPaid       = errors.New("loan is already fully paid")
	ErrLoanBusy              = errors.New("loan is locked by another operation")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound          = "LOAN_NOT_FOUND"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeInvalidLoanParameters = "INVALID_LOAN_PARAMETERS"
	ErrCodeInvalidPaymentAmount  = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidStatusValue    = "INVALID_STATUS_VALUE"
	ErrCodeLoanAlreadyPaid       = "LOAN_ALREADY_PAID"
	ErrCodeLoanBusy              = "LOAN_BUSY"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
	ErrCodeCacheError            = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapUserNotFound(userID string) *BusinessError {
	return NewBusinessError(
		ErrCodeUserNotFound,
		fmt.Sprintf("User with ID %s not found", userID),
		ErrUserNotFound,
	)
}

func WrapInvalidLoanParameters(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanParameters,
		reason,
		ErrInvalidLoanParameters,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapInvalidStatusValue(status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStatusValue,
		fmt.Sprintf("Invalid loan status value: %s", status),
		ErrInvalidStatusValue,
	)
}

func WrapLoanAlreadyPaid(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyPaid,
		fmt.Sprintf("Loan with ID %s is already fully paid", loanID),
		ErrLoanAlreadyPaid,
	)
}

func WrapLoanBusy(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanBusy,
		fmt.Sprintf("Loan with ID %s is being modified by another operation", loanID),
		ErrLoanBusy,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
