package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kreditlab/loan-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) CreateWithSchedule(ctx context.Context, loan *domain.Loan, schedule []domain.Installment) error {
	loanQuery := `
		INSERT INTO loans (id, user_id, principal, term, pan_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	installmentQuery := `
		INSERT INTO installments (id, loan_id, sequence, due_date, amount_due, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, loanQuery,
		loan.ID,
		loan.UserID,
		loan.Principal,
		loan.Term,
		loan.PANNumber,
		loan.Status,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, installment := range schedule {
		_, err = tx.ExecContext(ctx, installmentQuery,
			installment.ID,
			installment.LoanID,
			installment.Sequence,
			installment.DueDate,
			installment.AmountDue,
			installment.Status,
			installment.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, user_id, principal, term, pan_number, status, created_at, updated_at
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Loan, error) {
	query := `
		SELECT id, user_id, principal, term, pan_number, status, created_at, updated_at
		FROM loans
		WHERE user_id = $1
		ORDER BY created_at
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query, userID); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) GetAll(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT id, user_id, principal, term, pan_number, status, created_at, updated_at
		FROM loans
		ORDER BY created_at
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) GetSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error) {
	query := `
		SELECT id, loan_id, sequence, due_date, amount_due, status, created_at
		FROM installments
		WHERE loan_id = $1
		ORDER BY sequence
	`

	var schedule []domain.Installment
	if err := r.db.SelectContext(ctx, &schedule, query, loanID); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, loanID uuid.UUID, status string) error {
	query := `
		UPDATE loans
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, loanID, status, time.Now())
	return err
}

func (r *loanRepository) SaveAllocation(ctx context.Context, loan *domain.Loan, schedule []domain.Installment) error {
	installmentQuery := `
		UPDATE installments
		SET amount_due = $3, status = $4
		WHERE loan_id = $1 AND sequence = $2
	`
	loanQuery := `
		UPDATE loans
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, installment := range schedule {
		_, err = tx.ExecContext(ctx, installmentQuery,
			loan.ID,
			installment.Sequence,
			installment.AmountDue,
			installment.Status,
		)
		if err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, loanQuery, loan.ID, loan.Status, time.Now()); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) GetOverdueInstallments(ctx context.Context, asOf time.Time) ([]domain.Installment, error) {
	query := `
		SELECT i.id, i.loan_id, i.sequence, i.due_date, i.amount_due, i.status, i.created_at
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE i.status <> $1 AND i.due_date < $2 AND l.status IN ($3, $4)
		ORDER BY i.loan_id, i.sequence
	`

	var installments []domain.Installment
	err := r.db.SelectContext(ctx, &installments, query,
		domain.InstallmentStatusPaid,
		asOf,
		domain.LoanStatusPending,
		domain.LoanStatusApproved,
	)
	if err != nil {
		return nil, err
	}

	return installments, nil
}
