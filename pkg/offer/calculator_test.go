package offer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testCalculator() *Calculator {
	return NewCalculator(
		decimal.NewFromInt(1000),
		decimal.NewFromInt(50000),
		decimal.NewFromInt(15),
		30,
	)
}

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestCalculate(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	rate20 := decimal.NewFromInt(20)
	tenure14 := 14

	tests := []struct {
		name         string
		principal    decimal.Decimal
		rate         *decimal.Decimal
		tenure       *int
		wantInterest string
		wantTotal    string
		wantDaily    string
		wantTenure   int
		wantErr      bool
	}{
		{
			name:         "defaults applied",
			principal:    d("1000"),
			wantInterest: "150",
			wantTotal:    "1150",
			wantDaily:    "5",
			wantTenure:   30,
		},
		{
			name:         "explicit rate and tenure",
			principal:    d("10000"),
			rate:         &rate20,
			tenure:       &tenure14,
			wantInterest: "2000",
			wantTotal:    "12000",
			wantDaily:    "142.86",
			wantTenure:   14,
		},
		{
			name:         "fractional interest rounds half up",
			principal:    d("1001"),
			wantInterest: "150.15",
			wantTotal:    "1151.15",
			wantDaily:    "5.01",
			wantTenure:   30,
		},
		{
			name:      "below minimum",
			principal: d("999.99"),
			wantErr:   true,
		},
		{
			name:      "above maximum",
			principal: d("50000.01"),
			wantErr:   true,
		},
		{
			name:         "boundary maximum accepted",
			principal:    d("50000"),
			wantInterest: "7500",
			wantTotal:    "57500",
			wantDaily:    "250",
			wantTenure:   30,
		},
	}

	calc := testCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Calculate(tt.principal, tt.rate, tt.tenure, now)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Calculate() expected error, got offer %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Calculate() unexpected error: %v", err)
			}

			if got.InterestAmount.String() != tt.wantInterest {
				t.Errorf("InterestAmount = %s, want %s", got.InterestAmount, tt.wantInterest)
			}
			if got.TotalRepayment.String() != tt.wantTotal {
				t.Errorf("TotalRepayment = %s, want %s", got.TotalRepayment, tt.wantTotal)
			}
			if got.DailyInterest.String() != tt.wantDaily {
				t.Errorf("DailyInterest = %s, want %s", got.DailyInterest, tt.wantDaily)
			}
			if got.TenureDays != tt.wantTenure {
				t.Errorf("TenureDays = %d, want %d", got.TenureDays, tt.wantTenure)
			}

			wantDue := now.UTC().AddDate(0, 0, tt.wantTenure)
			if !got.DueDate.Equal(wantDue) {
				t.Errorf("DueDate = %v, want %v", got.DueDate, wantDue)
			}
		})
	}
}

func TestCalculateDeterministic(t *testing.T) {
	calc := testCalculator()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	first, err := calc.Calculate(d("2500"), nil, nil, now)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	second, err := calc.Calculate(d("2500"), nil, nil, now)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}

	if !first.TotalRepayment.Equal(second.TotalRepayment) || !first.DueDate.Equal(second.DueDate) {
		t.Errorf("same inputs produced different offers: %+v vs %+v", first, second)
	}
}

func TestCalculateRejectsNegativeRate(t *testing.T) {
	calc := testCalculator()
	neg := decimal.NewFromInt(-5)

	if _, err := calc.Calculate(d("2000"), &neg, nil, time.Now()); err == nil {
		t.Fatal("Calculate() accepted a negative rate")
	}
}

func TestOfferMatches(t *testing.T) {
	calc := testCalculator()
	rate20 := decimal.NewFromInt(20)
	tenure14 := 14

	offer, err := calc.Calculate(d("5000"), &rate20, &tenure14, time.Now())
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}

	if !offer.Matches(d("5000"), &rate20, &tenure14) {
		t.Error("Matches() = false for the producing inputs")
	}
	if !offer.Matches(d("5000"), nil, nil) {
		t.Error("Matches() = false when optional inputs are omitted")
	}
	if offer.Matches(d("6000"), &rate20, &tenure14) {
		t.Error("Matches() = true for a different amount")
	}
	if offer.Matches(d("5000"), &rate20, intPtr(30)) {
		t.Error("Matches() = true for a different tenure")
	}
}

func intPtr(v int) *int { return &v }
