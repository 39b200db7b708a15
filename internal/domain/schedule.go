package domain

import (
	"time"

	"github.com/shopspring/decimal"

	customError "github.com/kreditlab/loan-engine/pkg/errors"
	"github.com/kreditlab/loan-engine/pkg/utils"
)

// GenerateSchedule builds the repayment schedule for a loan: term
// installments of principal/term each, due every 7 days starting on
// startDate. The per-installment amount is rounded down to 2 decimal places
// and the rounding remainder is carried by the final installment, so the
// schedule sums to exactly the principal. The principal must fund at least
// 0.01 per installment; a smaller principal is rejected so no installment
// starts at zero while PENDING.
//
// Pure: the result depends only on the arguments. Installment IDs and the
// owning loan id are assigned by the caller.
func GenerateSchedule(principal decimal.Decimal, term int, startDate time.Time) ([]Installment, error) {
	if !principal.IsPositive() || term <= 0 {
		return nil, customError.ErrInvalidLoanParameters
	}

	amounts := utils.SplitPrincipal(principal, term)
	if amounts[0].IsZero() {
		return nil, customError.ErrInvalidLoanParameters
	}

	schedule := make([]Installment, term)
	for i := 0; i < term; i++ {
		schedule[i] = Installment{
			Sequence:  i,
			DueDate:   utils.CalculateDueDate(startDate, i),
			AmountDue: amounts[i],
			Status:    InstallmentStatusPending,
		}
	}

	return schedule, nil
}

// AllocationResult reports what a payment allocation did to a schedule.
type AllocationResult struct {
	// Remainder is the payment left over after every installment was
	// settled. It is not applied anywhere.
	Remainder decimal.Decimal
	// FullyPaid is true when every installment is PAID after allocation.
	FullyPaid bool
}

// AllocatePayment applies a payment against the schedule oldest-first:
// installments already PAID are skipped, each following installment is paid
// off in full while the remaining amount covers it, and a smaller positive
// remainder partially pays the next installment and stops there.
//
// The supplied schedule is mutated in place; that is the only side effect.
// A schedule that is already fully paid is rejected without mutation.
func AllocatePayment(schedule []Installment, amount decimal.Decimal) (AllocationResult, error) {
	if ScheduleFullyPaid(schedule) {
		return AllocationResult{}, customError.ErrLoanAlreadyPaid
	}
	if amount.IsNegative() {
		return AllocationResult{}, customError.ErrInvalidPaymentAmount
	}

	for i := range schedule {
		installment := &schedule[i]
		if installment.Status == InstallmentStatusPaid {
			continue
		}

		if amount.GreaterThanOrEqual(installment.AmountDue) {
			amount = amount.Sub(installment.AmountDue)
			installment.AmountDue = decimal.Zero
			installment.Status = InstallmentStatusPaid
			continue
		}

		if amount.IsZero() {
			break
		}

		installment.AmountDue = installment.AmountDue.Sub(amount)
		installment.Status = InstallmentStatusPartiallyPaid
		amount = decimal.Zero
		break
	}

	return AllocationResult{
		Remainder: amount,
		FullyPaid: ScheduleFullyPaid(schedule),
	}, nil
}

// Outstanding sums the remaining amount due across the schedule.
func Outstanding(schedule []Installment) decimal.Decimal {
	total := decimal.Zero
	for _, installment := range schedule {
		total = total.Add(installment.AmountDue)
	}
	return total
}

// ScheduleFullyPaid reports whether every installment is PAID.
func ScheduleFullyPaid(schedule []Installment) bool {
	for _, installment := range schedule {
		if installment.Status != InstallmentStatusPaid {
			return false
		}
	}
	return true
}
