package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kreditlab/loan-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// CreateWithSchedule creates a loan together with its full repayment
	// schedule in a single transaction
	CreateWithSchedule(ctx context.Context, loan *domain.Loan, schedule []domain.Installment) error

	// GetByID retrieves a loan by its id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByUserID retrieves all loans belonging to a user
	GetByUserID(ctx context.Context, userID string) ([]*domain.Loan, error)

	// GetAll retrieves every loan
	GetAll(ctx context.Context) ([]*domain.Loan, error)

	// GetSchedule retrieves a loan's schedule ordered by sequence
	GetSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error)

	// UpdateStatus updates a loan's status
	UpdateStatus(ctx context.Context, loanID uuid.UUID, status string) error

	// SaveAllocation persists the mutated schedule and the loan status in a
	// single transaction after a payment allocation
	SaveAllocation(ctx context.Context, loan *domain.Loan, schedule []domain.Installment) error

	// GetOverdueInstallments retrieves unpaid installments due before asOf
	// across all open loans
	GetOverdueInstallments(ctx context.Context, asOf time.Time) ([]domain.Installment, error)
}

// UserRepository defines the interface for user lookups
type UserRepository interface {
	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
