package offer

import (
	"fmt"
	"time"

	"ai-lending-be/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// Offer is the result of a loan calculation. All monetary values are rounded
// to 2 decimal places.
type Offer struct {
	Amount         decimal.Decimal `json:"amount"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TenureDays     int             `json:"tenure_days"`
	InterestAmount decimal.Decimal `json:"interest_amount"`
	TotalRepayment decimal.Decimal `json:"total_repayment"`
	DailyInterest  decimal.Decimal `json:"daily_interest"`
	DueDate        time.Time       `json:"due_date"`
}

// Calculator computes loan offers. It is pure: the same inputs always yield
// the same Offer, so a speculative preview and the authoritative calculation
// at loan creation match exactly.
type Calculator struct {
	MinAmount         decimal.Decimal
	MaxAmount         decimal.Decimal
	DefaultRate       decimal.Decimal
	DefaultTenureDays int
}

func NewCalculator(minAmount, maxAmount, defaultRate decimal.Decimal, defaultTenureDays int) *Calculator {
	return &Calculator{
		MinAmount:         minAmount,
		MaxAmount:         maxAmount,
		DefaultRate:       defaultRate,
		DefaultTenureDays: defaultTenureDays,
	}
}

// Calculate computes interest and repayment terms for a principal. A nil rate
// or tenure falls back to the configured defaults. The rate covers the whole
// tenure; it is not annualized or prorated.
//
// interest     = principal * rate / 100
// total        = principal + interest   (round half-up, 2dp)
// due date     = now (UTC) + tenure days
func (c *Calculator) Calculate(principal decimal.Decimal, ratePct *decimal.Decimal, tenureDays *int, now time.Time) (*Offer, error) {
	rate := c.DefaultRate
	if ratePct != nil {
		rate = *ratePct
	}
	tenure := c.DefaultTenureDays
	if tenureDays != nil {
		tenure = *tenureDays
	}

	if principal.LessThan(c.MinAmount) || principal.GreaterThan(c.MaxAmount) {
		return nil, fmt.Errorf("%w: loan amount must be between %s and %s",
			apperrors.ErrInvalidInput, c.MinAmount.StringFixed(0), c.MaxAmount.StringFixed(0))
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate must not be negative", apperrors.ErrInvalidInput)
	}
	if tenure <= 0 {
		return nil, fmt.Errorf("%w: tenure must be a positive number of days", apperrors.ErrInvalidInput)
	}

	interest := principal.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	total := principal.Add(interest).Round(2)
	daily := interest.Div(decimal.NewFromInt(int64(tenure))).Round(2)

	return &Offer{
		Amount:         principal.Round(2),
		InterestRate:   rate,
		TenureDays:     tenure,
		InterestAmount: interest,
		TotalRepayment: total,
		DailyInterest:  daily,
		DueDate:        now.UTC().AddDate(0, 0, tenure),
	}, nil
}

// Matches reports whether this offer was produced from the given inputs.
// Used to decide if a cached preview can be reused verbatim at creation time.
func (o *Offer) Matches(principal decimal.Decimal, ratePct *decimal.Decimal, tenureDays *int) bool {
	if !o.Amount.Equal(principal.Round(2)) {
		return false
	}
	if ratePct != nil && !o.InterestRate.Equal(*ratePct) {
		return false
	}
	if tenureDays != nil && o.TenureDays != *tenureDays {
		return false
	}
	return true
}
