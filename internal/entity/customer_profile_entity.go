package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerProfile holds the business data Lucy collects during onboarding.
// One profile per user, upserted when onboarding completes.
type CustomerProfile struct {
	Id                    uuid.UUID
	UserId                uuid.UUID
	BusinessName          string
	BusinessType          string
	BusinessLocation      string
	YearsInBusiness       *float64
	MonthlyRevenue        *decimal.Decimal
	MonthlyExpenses       *decimal.Decimal
	OnboardingCompleted   bool
	OnboardingCompletedAt *time.Time
	RawProfile            []byte
	CreatedAt             time.Time
	UpdatedAt             *time.Time
}
