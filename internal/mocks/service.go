package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/kreditlab/loan-engine/internal/domain"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, userID string, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	args := m.Called(ctx, userID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateLoanResponse), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetails, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanDetails), args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context) ([]domain.AdminLoanSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AdminLoanSummary), args.Error(1)
}

func (m *MockLoanService) ListUserLoans(ctx context.Context, userID string) ([]domain.LoanSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanSummary), args.Error(1)
}

func (m *MockLoanService) UpdateStatus(ctx context.Context, loanID uuid.UUID, status string) error {
	args := m.Called(ctx, loanID, status)
	return args.Error(0)
}

func (m *MockLoanService) RecordRepayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*domain.RepaymentResult, error) {
	args := m.Called(ctx, loanID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepaymentResult), args.Error(1)
}
