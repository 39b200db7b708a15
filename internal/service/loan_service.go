package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/kreditlab/loan-engine/internal/config"
	"github.com/kreditlab/loan-engine/internal/domain"
	"github.com/kreditlab/loan-engine/internal/repository"
	customError "github.com/kreditlab/loan-engine/pkg/errors"
)

const detailsKeyPrefix = "loan:details:"

// Service is the loan lifecycle API consumed by the transport layer.
type Service interface {
	CreateLoan(ctx context.Context, userID string, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetails, error)
	ListLoans(ctx context.Context) ([]domain.AdminLoanSummary, error)
	ListUserLoans(ctx context.Context, userID string) ([]domain.LoanSummary, error)
	UpdateStatus(ctx context.Context, loanID uuid.UUID, status string) error
	RecordRepayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*domain.RepaymentResult, error)
}

type LoanService struct {
	loanRepo repository.LoanRepository
	userRepo repository.UserRepository
	redis    *redis.Client
	locker   *loanLocker
	cacheTTL time.Duration
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	userRepo repository.UserRepository,
	redisClient *redis.Client,
	cfg *config.Config,
) *LoanService {
	return &LoanService{
		loanRepo: loanRepo,
		userRepo: userRepo,
		redis:    redisClient,
		locker:   newLoanLocker(redisClient, cfg.Business.LockTTL),
		cacheTTL: cfg.Business.CacheTTL,
	}
}

// CreateLoan creates a loan with its full repayment schedule. The loan
// starts in PENDING and the first installment is due on the creation day.
func (s *LoanService) CreateLoan(ctx context.Context, userID string, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapUserNotFound(userID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	now := time.Now()
	startDate := now.Truncate(24 * time.Hour)

	schedule, err := domain.GenerateSchedule(request.Principal, request.Term, startDate)
	if err != nil {
		return nil, customError.WrapInvalidLoanParameters("principal and term must be positive")
	}

	loan := &domain.Loan{
		ID:        uuid.New(),
		UserID:    userID,
		Principal: request.Principal,
		Term:      request.Term,
		PANNumber: request.PANNumber,
		Status:    domain.LoanStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i := range schedule {
		schedule[i].ID = uuid.New()
		schedule[i].LoanID = loan.ID
		schedule[i].CreatedAt = now
	}

	if err := s.loanRepo.CreateWithSchedule(ctx, loan, schedule); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.CreateLoanResponse{Loan: loan, Schedule: schedule}, nil
}

// GetLoan returns a loan with its schedule and the borrower's display name.
// Details are served from a redis read-through cache; every mutation of the
// loan drops the cached entry.
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetails, error) {
	key := detailsKeyPrefix + loanID.String()
	if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
		var details domain.LoanDetails
		if err := json.Unmarshal([]byte(cached), &details); err == nil {
			return &details, nil
		}
	}

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	schedule, err := s.loanRepo.GetSchedule(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	user, err := s.userRepo.GetByID(ctx, loan.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapUserNotFound(loan.UserID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	details := &domain.LoanDetails{
		Loan:     loan,
		Schedule: schedule,
		UserName: user.FullName,
	}

	if encoded, err := json.Marshal(details); err == nil {
		s.redis.Set(ctx, key, encoded, s.cacheTTL)
	}

	return details, nil
}

// ListLoans returns every loan joined with the borrower name, for admin review.
func (s *LoanService) ListLoans(ctx context.Context) ([]domain.AdminLoanSummary, error) {
	loans, err := s.loanRepo.GetAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summaries := make([]domain.AdminLoanSummary, 0, len(loans))
	for _, loan := range loans {
		summary := domain.AdminLoanSummary{
			ID:     loan.ID,
			Amount: loan.Principal,
			Term:   loan.Term,
			Status: loan.Status,
		}

		user, err := s.userRepo.GetByID(ctx, loan.UserID)
		switch {
		case err == nil:
			summary.FullName = user.FullName
		case !errors.Is(err, sql.ErrNoRows):
			return nil, customError.WrapDatabaseError(err)
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// ListUserLoans returns the user's loans with the amount still outstanding
// on each schedule.
func (s *LoanService) ListUserLoans(ctx context.Context, userID string) ([]domain.LoanSummary, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapUserNotFound(userID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	loans, err := s.loanRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summaries := make([]domain.LoanSummary, 0, len(loans))
	for _, loan := range loans {
		schedule, err := s.loanRepo.GetSchedule(ctx, loan.ID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}

		summaries = append(summaries, domain.LoanSummary{
			ID:                loan.ID,
			Amount:            loan.Principal,
			Status:            loan.Status,
			AmountOutstanding: domain.Outstanding(schedule),
		})
	}

	return summaries, nil
}

// UpdateStatus sets a loan's status to one of the four enumerated values.
// Transitions are deliberately unrestricted beyond enum membership; only the
// allocator-driven transition to PAID is automatic.
func (s *LoanService) UpdateStatus(ctx context.Context, loanID uuid.UUID, status string) error {
	if !domain.IsValidStatus(status) {
		return customError.WrapInvalidStatusValue(status)
	}

	release, err := s.locker.Acquire(ctx, loanID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.loanRepo.GetByID(ctx, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapLoanNotFound(loanID.String())
		}
		return customError.WrapDatabaseError(err)
	}

	if err := s.loanRepo.UpdateStatus(ctx, loanID, status); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.redis.Del(ctx, detailsKeyPrefix+loanID.String())
	return nil
}

// RecordRepayment allocates a payment against the loan's schedule
// oldest-first. When the allocation settles the final installment the loan
// status is forced to PAID in the same transaction; otherwise the status is
// left untouched regardless of partial progress.
func (s *LoanService) RecordRepayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*domain.RepaymentResult, error) {
	release, err := s.locker.Acquire(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if loan.Status == domain.LoanStatusPaid {
		return nil, customError.WrapLoanAlreadyPaid(loanID.String())
	}

	schedule, err := s.loanRepo.GetSchedule(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	allocation, err := domain.AllocatePayment(schedule, amount)
	if err != nil {
		switch {
		case errors.Is(err, customError.ErrLoanAlreadyPaid):
			return nil, customError.WrapLoanAlreadyPaid(loanID.String())
		case errors.Is(err, customError.ErrInvalidPaymentAmount):
			return nil, customError.WrapInvalidPaymentAmount(amount.String())
		}
		return nil, err
	}

	if allocation.FullyPaid {
		loan.Status = domain.LoanStatusPaid
	}

	if err := s.loanRepo.SaveAllocation(ctx, loan, schedule); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.redis.Del(ctx, detailsKeyPrefix+loanID.String())

	return &domain.RepaymentResult{
		LoanID:        loanID,
		Remainder:     allocation.Remainder,
		LoanFullyPaid: allocation.FullyPaid,
		Outstanding:   domain.Outstanding(schedule),
	}, nil
}
