package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kreditlab/loan-engine/internal/domain"
	"github.com/kreditlab/loan-engine/internal/mocks"
	customError "github.com/kreditlab/loan-engine/pkg/errors"
)

func newTestService(t *testing.T) (*LoanService, *mocks.MockLoanRepository, *mocks.MockUserRepository, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	loanRepo := &mocks.MockLoanRepository{}
	userRepo := &mocks.MockUserRepository{}

	svc := &LoanService{
		loanRepo: loanRepo,
		userRepo: userRepo,
		redis:    client,
		locker:   newLoanLocker(client, 10*time.Second),
		cacheTTL: time.Minute,
	}

	return svc, loanRepo, userRepo, client
}

func testUser(id string) *domain.User {
	return &domain.User{ID: id, FullName: "Jane Borrower"}
}

func TestCreateLoan(t *testing.T) {
	userID := "user-123"

	t.Run("success", func(t *testing.T) {
		svc, loanRepo, userRepo, _ := newTestService(t)

		userRepo.On("GetByID", mock.Anything, userID).Return(testUser(userID), nil)
		loanRepo.On("CreateWithSchedule", mock.Anything,
			mock.MatchedBy(func(loan *domain.Loan) bool {
				return loan.UserID == userID && loan.Status == domain.LoanStatusPending
			}),
			mock.MatchedBy(func(schedule []domain.Installment) bool {
				return len(schedule) == 4
			}),
		).Return(nil)

		result, err := svc.CreateLoan(context.Background(), userID, &domain.CreateLoanRequest{
			Principal: decimal.NewFromInt(1000),
			Term:      4,
			PANNumber: "ABCDE1234F",
		})

		require.NoError(t, err)
		require.Len(t, result.Schedule, 4)
		assert.Equal(t, domain.LoanStatusPending, result.Loan.Status)
		assert.True(t, domain.Outstanding(result.Schedule).Equal(decimal.NewFromInt(1000)))

		for i, installment := range result.Schedule {
			assert.Equal(t, result.Loan.ID, installment.LoanID)
			assert.Equal(t, i, installment.Sequence)
			assert.Equal(t, domain.InstallmentStatusPending, installment.Status)
			assert.True(t, installment.AmountDue.Equal(decimal.NewFromInt(250)))
			if i > 0 {
				gap := installment.DueDate.Sub(result.Schedule[i-1].DueDate)
				assert.Equal(t, 7*24*time.Hour, gap)
			}
		}

		loanRepo.AssertExpectations(t)
		userRepo.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, userRepo, _ := newTestService(t)

		userRepo.On("GetByID", mock.Anything, userID).Return(nil, sql.ErrNoRows)

		_, err := svc.CreateLoan(context.Background(), userID, &domain.CreateLoanRequest{
			Principal: decimal.NewFromInt(1000),
			Term:      4,
			PANNumber: "ABCDE1234F",
		})

		assert.ErrorIs(t, err, customError.ErrUserNotFound)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		svc, _, userRepo, _ := newTestService(t)

		userRepo.On("GetByID", mock.Anything, userID).Return(testUser(userID), nil)

		for _, request := range []*domain.CreateLoanRequest{
			{Principal: decimal.NewFromInt(-5), Term: 4, PANNumber: "ABCDE1234F"},
			{Principal: decimal.NewFromInt(1000), Term: 0, PANNumber: "ABCDE1234F"},
		} {
			_, err := svc.CreateLoan(context.Background(), userID, request)
			assert.ErrorIs(t, err, customError.ErrInvalidLoanParameters)
		}
	})

	t.Run("database error", func(t *testing.T) {
		svc, loanRepo, userRepo, _ := newTestService(t)

		userRepo.On("GetByID", mock.Anything, userID).Return(testUser(userID), nil)
		loanRepo.On("CreateWithSchedule", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("connection refused"))

		_, err := svc.CreateLoan(context.Background(), userID, &domain.CreateLoanRequest{
			Principal: decimal.NewFromInt(1000),
			Term:      4,
			PANNumber: "ABCDE1234F",
		})

		var businessErr *customError.BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, customError.ErrCodeDatabaseError, businessErr.Code)
	})
}

func TestGetLoan(t *testing.T) {
	loanID := uuid.New()

	t.Run("success and cache hit on second read", func(t *testing.T) {
		svc, loanRepo, userRepo, _ := newTestService(t)

		loan := &domain.Loan{
			ID:        loanID,
			UserID:    "user-123",
			Principal: decimal.NewFromInt(1000),
			Term:      2,
			Status:    domain.LoanStatusApproved,
		}
		schedule := []domain.Installment{
			{LoanID: loanID, Sequence: 0, AmountDue: decimal.NewFromInt(500), Status: domain.InstallmentStatusPending},
			{LoanID: loanID, Sequence: 1, AmountDue: decimal.NewFromInt(500), Status: domain.InstallmentStatusPending},
		}

		loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil).Once()
		loanRepo.On("GetSchedule", mock.Anything, loanID).Return(schedule, nil).Once()
		userRepo.On("GetByID", mock.Anything, "user-123").Return(testUser("user-123"), nil).Once()

		details, err := svc.GetLoan(context.Background(), loanID)
		require.NoError(t, err)
		assert.Equal(t, "Jane Borrower", details.UserName)
		assert.Len(t, details.Schedule, 2)

		// second read must come from the cache; the Once() expectations
		// above fail if the repos are hit again
		cached, err := svc.GetLoan(context.Background(), loanID)
		require.NoError(t, err)
		assert.Equal(t, details.UserName, cached.UserName)

		loanRepo.AssertExpectations(t)
		userRepo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc, loanRepo, _, _ := newTestService(t)

		loanRepo.On("GetByID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)

		_, err := svc.GetLoan(context.Background(), loanID)
		assert.ErrorIs(t, err, customError.ErrLoanNotFound)
	})
}

func TestListUserLoans(t *testing.T) {
	userID := "user-123"

	t.Run("summaries include outstanding amount", func(t *testing.T) {
		svc, loanRepo, userRepo, _ := newTestService(t)

		first := &domain.Loan{ID: uuid.New(), UserID: userID, Principal: decimal.NewFromInt(1000), Term: 2, Status: domain.LoanStatusApproved}
		second := &domain.Loan{ID: uuid.New(), UserID: userID, Principal: decimal.NewFromInt(300), Term: 1, Status: domain.LoanStatusPaid}

		userRepo.On("GetByID", mock.Anything, userID).Return(testUser(userID), nil)
		loanRepo.On("GetByUserID", mock.Anything, userID).Return([]*domain.Loan{first, second}, nil)
		loanRepo.On("GetSchedule", mock.Anything, first.ID).Return([]domain.Installment{
			{AmountDue: decimal.Zero, Status: domain.InstallmentStatusPaid},
			{AmountDue: decimal.NewFromInt(500), Status: domain.InstallmentStatusPending},
		}, nil)
		loanRepo.On("GetSchedule", mock.Anything, second.ID).Return([]domain.Installment{
			{AmountDue: decimal.Zero, Status: domain.InstallmentStatusPaid},
		}, nil)

		summaries, err := svc.ListUserLoans(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		assert.True(t, summaries[0].AmountOutstanding.Equal(decimal.NewFromInt(500)))
		assert.True(t, summaries[1].AmountOutstanding.IsZero())
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, userRepo, _ := newTestService(t)

		userRepo.On("GetByID", mock.Anything, userID).Return(nil, sql.ErrNoRows)

		_, err := svc.ListUserLoans(context.Background(), userID)
		assert.ErrorIs(t, err, customError.ErrUserNotFound)
	})
}

func TestUpdateStatus(t *testing.T) {
	loanID := uuid.New()

	t.Run("success", func(t *testing.T) {
		svc, loanRepo, _, _ := newTestService(t)

		loanRepo.On("GetByID", mock.Anything, loanID).
			Return(&domain.Loan{ID: loanID, Status: domain.LoanStatusPending}, nil)
		loanRepo.On("UpdateStatus", mock.Anything, loanID, domain.LoanStatusApproved).Return(nil)

		err := svc.UpdateStatus(context.Background(), loanID, domain.LoanStatusApproved)
		assert.NoError(t, err)
		loanRepo.AssertExpectations(t)
	})

	t.Run("invalid status value", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)

		err := svc.UpdateStatus(context.Background(), loanID, "CANCELLED")
		assert.ErrorIs(t, err, customError.ErrInvalidStatusValue)
	})

	t.Run("not found", func(t *testing.T) {
		svc, loanRepo, _, _ := newTestService(t)

		loanRepo.On("GetByID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)

		err := svc.UpdateStatus(context.Background(), loanID, domain.LoanStatusRejected)
		assert.ErrorIs(t, err, customError.ErrLoanNotFound)
	})

	t.Run("locked loan is rejected", func(t *testing.T) {
		svc, _, _, client := newTestService(t)

		require.NoError(t, client.SetNX(context.Background(), lockKeyPrefix+loanID.String(), "1", time.Minute).Err())

		err := svc.UpdateStatus(context.Background(), loanID, domain.LoanStatusApproved)
		assert.ErrorIs(t, err, customError.ErrLoanBusy)
	})
}

func TestRecordRepayment(t *testing.T) {
	loanID := uuid.New()

	openLoan := func() *domain.Loan {
		return &domain.Loan{ID: loanID, UserID: "user-123", Principal: decimal.NewFromInt(200), Term: 2, Status: domain.LoanStatusApproved}
	}
	openSchedule := func() []domain.Installment {
		return []domain.Installment{
			{LoanID: loanID, Sequence: 0, AmountDue: decimal.NewFromInt(100), Status: domain.InstallmentStatusPending},
			{LoanID: loanID, Sequence: 1, AmountDue: decimal.NewFromInt(100), Status: domain.InstallmentStatusPending},
		}
	}

	t.Run("partial payment spans installments, status unchanged", func(t *testing.T) {
		svc, loanRepo, _, _ := newTestService(t)

		loanRepo.On("GetByID", mock.Anything, loanID).Return(openLoan(), nil)
		loanRepo.On("GetSchedule", mock.Anything, loanID).Return(openSchedule(), nil)
		loanRepo.On("SaveAllocation", mock.Anything,
			mock.MatchedBy(func(loan *domain.Loan) bool {
				return loan.Status == domain.LoanStatusApproved
			}),
			mock.MatchedBy(func(schedule []domain.Installment) bool {
				return schedule[0].Status == domain.InstallmentStatusPaid &&
					schedule[1].Status == domain.InstallmentStatusPartiallyPaid &&
					schedule[1].AmountDue.Equal(decimal.NewFromInt(50))
			}),
		).Return(nil)

		result, err := svc.RecordRepayment(context.Background(), loanID, decimal.NewFromInt(150))
		require.NoError(t, err)

		assert.False(t, result.LoanFullyPaid)
		assert.True(t, result.Remainder.IsZero())
		assert.True(t, result.Outstanding.Equal(decimal.NewFromInt(50)))
		loanRepo.AssertExpectations(t)
	})

	t.Run("final payment marks the loan paid", func(t *testing.T) {
		svc, loanRepo, _, _ := newTestService(t)

		loanRepo.On("GetByID", mock.Anything, loanID).Return(openLoan(), nil)
		loanRepo.On("GetSchedule", mock.Anything, loanID).Return(openSchedule(), nil)
		loanRepo.On("SaveAllocation", mock.Anything,
			mock.MatchedBy(func(loan *domain.Loan) bool {
				return loan.Status == domain.LoanStatusPaid
			}),
			mock.Anything,
		).Return(nil)

		result, err := svc.RecordRepayment(context.Background(), loanID, decimal.NewFromInt(250))
		require.NoError(t, err)

		assert.True(t, result.LoanFullyPaid)
		assert.True(t, result.Remainder.Equal(decimal.NewFromInt(50)))
		assert.True(t, result.Outstanding.IsZero())
		loanRepo.AssertExpectations(t)
	})

	t.Run("already paid loan", func(t *testing.T) {
		svc, loanRepo, _, _ := newTestService(t)

		paid := openLoan()
		paid.Status = domain.LoanStatusPaid
		loanRepo.On("GetByID", mock.Anything, loanID).Return(paid, nil)

		_, err := svc.RecordRepayment(context.Background(), loanID, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, customError.ErrLoanAlreadyPaid)
	})

	t.Run("negative payment", func(t *testing.T) {
		svc, loanRepo, _, _ := newTestService(t)

		loanRepo.On("GetByID", mock.Anything, loanID).Return(openLoan(), nil)
		loanRepo.On("GetSchedule", mock.Anything, loanID).Return(openSchedule(), nil)

		_, err := svc.RecordRepayment(context.Background(), loanID, decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, customError.ErrInvalidPaymentAmount)
		loanRepo.AssertNotCalled(t, "SaveAllocation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		svc, loanRepo, _, _ := newTestService(t)

		loanRepo.On("GetByID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)

		_, err := svc.RecordRepayment(context.Background(), loanID, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, customError.ErrLoanNotFound)
	})

	t.Run("locked loan is rejected", func(t *testing.T) {
		svc, _, _, client := newTestService(t)

		require.NoError(t, client.SetNX(context.Background(), lockKeyPrefix+loanID.String(), "1", time.Minute).Err())

		_, err := svc.RecordRepayment(context.Background(), loanID, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, customError.ErrLoanBusy)
	})

	t.Run("lock is released after the operation", func(t *testing.T) {
		svc, loanRepo, _, client := newTestService(t)

		loanRepo.On("GetByID", mock.Anything, loanID).Return(openLoan(), nil)
		loanRepo.On("GetSchedule", mock.Anything, loanID).Return(openSchedule(), nil)
		loanRepo.On("SaveAllocation", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, err := svc.RecordRepayment(context.Background(), loanID, decimal.NewFromInt(100))
		require.NoError(t, err)

		exists, err := client.Exists(context.Background(), lockKeyPrefix+loanID.String()).Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})
}
