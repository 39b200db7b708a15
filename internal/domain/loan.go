package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending  = "PENDING"
	LoanStatusApproved = "APPROVED"
	LoanStatusPaid     = "PAID"
	LoanStatusRejected = "REJECTED"
)

// Loan represents a loan aggregate. Its schedule has exactly Term
// installments, is created together with the loan and is never resized or
// reordered afterwards.
type Loan struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Principal decimal.Decimal `json:"principal" db:"principal"`
	Term      int             `json:"term" db:"term"`
	PANNumber string          `json:"pan_number" db:"pan_number"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// IsValidStatus reports whether s is one of the four loan statuses.
func IsValidStatus(s string) bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusPaid, LoanStatusRejected:
		return true
	}
	return false
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	Principal decimal.Decimal `json:"principal" validate:"required,gt=0"`
	Term      int             `json:"term" validate:"required,gt=0"`
	PANNumber string          `json:"pan_number" validate:"required"`
}

type CreateLoanResponse struct {
	Loan     *Loan         `json:"loan"`
	Schedule []Installment `json:"schedule"`
}

type LoanDetails struct {
	Loan     *Loan         `json:"loan"`
	Schedule []Installment `json:"schedule"`
	UserName string        `json:"user_name"`
}

// LoanSummary is the per-user listing row
type LoanSummary struct {
	ID                uuid.UUID       `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	AmountOutstanding decimal.Decimal `json:"amount_outstanding"`
}

// AdminLoanSummary is the admin listing row, joined with the borrower name
type AdminLoanSummary struct {
	ID       uuid.UUID       `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Term     int             `json:"term"`
	Status   string          `json:"status"`
	FullName string          `json:"full_name"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type RepaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RepaymentResult reports the outcome of a repayment. Remainder is the part
// of the payment left over after the whole schedule was settled; policy for
// it (refund, credit) is the caller's decision.
type RepaymentResult struct {
	LoanID        uuid.UUID       `json:"loan_id"`
	Remainder     decimal.Decimal `json:"remainder"`
	LoanFullyPaid bool            `json:"loan_fully_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}
