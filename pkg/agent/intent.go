package agent

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentKind names one of the fixed business operations the assistant may
// request. Anything else is rejected at parse time.
type IntentKind string

const (
	IntentComputeLoanOffer   IntentKind = "calculate_loan_offer"
	IntentStoreAcceptance    IntentKind = "store_customer_acceptance"
	IntentGetLoanInfo        IntentKind = "get_loan_info"
	IntentCompleteOnboarding IntentKind = "complete_onboarding"
)

// Intent is a validated structured instruction extracted from the
// assistant's output. Exactly one of the argument fields matching Kind is
// populated.
type Intent struct {
	Kind IntentKind

	ComputeOffer *ComputeOfferArgs
	Acceptance   *AcceptanceArgs
	LoanInfo     *LoanInfoArgs
	Onboarding   *OnboardingArgs
}

type ComputeOfferArgs struct {
	Amount       decimal.Decimal  `json:"amount"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty"`
	TenureDays   *int             `json:"tenure_days,omitempty"`
}

type AcceptanceArgs struct {
	LoanID   uuid.UUID `json:"loan_id"`
	Accepted bool      `json:"accepted"`
}

type LoanInfoArgs struct{}

// ProfileFields carries the business data collected during onboarding.
type ProfileFields struct {
	BusinessName     string           `json:"business_name"`
	BusinessType     string           `json:"business_type"`
	BusinessLocation string           `json:"business_location"`
	YearsInBusiness  *float64         `json:"years_in_business,omitempty"`
	MonthlyRevenue   *decimal.Decimal `json:"monthly_revenue,omitempty"`
	MonthlyExpenses  *decimal.Decimal `json:"monthly_expenses,omitempty"`
}

type OnboardingArgs struct {
	Profile ProfileFields `json:"profile_data"`
}

// ParseIntent validates a tool call against the fixed schema. A nil error
// guarantees the returned Intent's arguments are well-formed; any failure
// here is an IntentParseWarning for the caller, never a fatal error.
func ParseIntent(name string, rawArgs []byte) (*Intent, error) {
	switch IntentKind(name) {
	case IntentComputeLoanOffer:
		var args ComputeOfferArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, fmt.Errorf("decode %s args: %w", name, err)
		}
		if args.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%s: amount must be positive, got %s", name, args.Amount)
		}
		if args.TenureDays != nil && *args.TenureDays <= 0 {
			return nil, fmt.Errorf("%s: tenure_days must be positive", name)
		}
		return &Intent{Kind: IntentComputeLoanOffer, ComputeOffer: &args}, nil

	case IntentStoreAcceptance:
		// loan_id arrives as a string; decode loosely then parse the UUID so
		// a garbage id degrades to a warning instead of a panic downstream.
		var loose struct {
			LoanID   string `json:"loan_id"`
			Accepted *bool  `json:"accepted"`
		}
		if err := json.Unmarshal(rawArgs, &loose); err != nil {
			return nil, fmt.Errorf("decode %s args: %w", name, err)
		}
		loanID, err := uuid.Parse(loose.LoanID)
		if err != nil {
			return nil, fmt.Errorf("%s: bad loan_id %q: %w", name, loose.LoanID, err)
		}
		if loose.Accepted == nil {
			return nil, fmt.Errorf("%s: accepted flag missing", name)
		}
		return &Intent{Kind: IntentStoreAcceptance, Acceptance: &AcceptanceArgs{LoanID: loanID, Accepted: *loose.Accepted}}, nil

	case IntentGetLoanInfo:
		return &Intent{Kind: IntentGetLoanInfo, LoanInfo: &LoanInfoArgs{}}, nil

	case IntentCompleteOnboarding:
		var args OnboardingArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, fmt.Errorf("decode %s args: %w", name, err)
		}
		if args.Profile.BusinessName == "" {
			return nil, fmt.Errorf("%s: profile_data.business_name is required", name)
		}
		return &Intent{Kind: IntentCompleteOnboarding, Onboarding: &args}, nil

	default:
		return nil, fmt.Errorf("unknown intent %q", name)
	}
}

// ToolDefinitions returns the function schemas advertised to the assistant.
// Kept in one place so the wire schema and ParseIntent cannot drift apart.
func ToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        string(IntentComputeLoanOffer),
			Description: "Calculate loan terms including interest and total repayment amount",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"amount": {"type": "number", "description": "The loan amount requested in KES"},
					"interest_rate": {"type": "number", "description": "Interest rate over the tenure as a percentage"},
					"tenure_days": {"type": "number", "description": "Loan tenure in days"}
				},
				"required": ["amount"]
			}`),
		},
		{
			Name:        string(IntentStoreAcceptance),
			Description: "Store the customer's acceptance or rejection of a loan offer",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"loan_id": {"type": "string", "description": "The loan ID being accepted or rejected"},
					"accepted": {"type": "boolean", "description": "true to accept, false to reject"}
				},
				"required": ["loan_id", "accepted"]
			}`),
		},
		{
			Name:        string(IntentGetLoanInfo),
			Description: "Get the customer's current loans and recent transaction history",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        string(IntentCompleteOnboarding),
			Description: "Mark customer onboarding complete after collecting business information",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"profile_data": {
						"type": "object",
						"properties": {
							"business_name": {"type": "string"},
							"business_type": {"type": "string"},
							"business_location": {"type": "string"},
							"years_in_business": {"type": "number"},
							"monthly_revenue": {"type": "number"},
							"monthly_expenses": {"type": "number"}
						},
						"required": ["business_name"]
					}
				},
				"required": ["profile_data"]
			}`),
		},
	}
}

// ToolDefinition is a provider-agnostic function schema.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}
