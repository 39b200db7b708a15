package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculateDueDate calculates the due date for an installment.
// Installments are due every 7 days and the first one (sequence 0) is due on
// the start date itself.
func CalculateDueDate(startDate time.Time, sequence int) time.Time {
	return startDate.AddDate(0, 0, 7*sequence)
}

// SplitPrincipal splits a principal into term equal parts.
// Each part is principal/term rounded down to 2 decimal places; the rounding
// remainder is added to the final part so the parts always sum to exactly
// the principal. Principals worth less than 0.01 per part produce zero
// leading parts; callers must reject those inputs.
func SplitPrincipal(principal decimal.Decimal, term int) []decimal.Decimal {
	part := principal.Div(decimal.NewFromInt(int64(term))).RoundDown(2)

	parts := make([]decimal.Decimal, term)
	for i := 0; i < term-1; i++ {
		parts[i] = part
	}
	parts[term-1] = principal.Sub(part.Mul(decimal.NewFromInt(int64(term - 1))))

	return parts
}
