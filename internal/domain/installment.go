package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusPending       = "PENDING"
	InstallmentStatusPartiallyPaid = "PARTIALLY_PAID"
	InstallmentStatusPaid          = "PAID"
)

// Installment is a single scheduled repayment owned by a loan.
// AmountDue only ever decreases as payments are allocated against it;
// AmountDue is zero exactly when Status is PAID.
type Installment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	LoanID    uuid.UUID       `json:"loan_id" db:"loan_id"`
	Sequence  int             `json:"sequence" db:"sequence"`
	DueDate   time.Time       `json:"due_date" db:"due_date"`
	AmountDue decimal.Decimal `json:"amount_due" db:"amount_due"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
