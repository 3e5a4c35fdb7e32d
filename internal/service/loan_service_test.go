package service

import (
	"context"
	"testing"

	"ai-lending-be/internal/dto"
	"ai-lending-be/internal/pkg/apperrors"
	"ai-lending-be/pkg/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (f *loanFixture) createLoan(t *testing.T, userId uuid.UUID, amt string) *dto.LoanResponse {
	t.Helper()
	res, err := f.svc.CreateLoan(context.Background(), userId, &dto.CreateLoanRequest{Amount: amount(amt)})
	require.NoError(t, err)
	return res
}

// activateLoan walks a fresh loan to active through the real transitions.
func (f *loanFixture) activateLoan(t *testing.T, userId uuid.UUID, amt string) *dto.LoanResponse {
	t.Helper()
	ctx := context.Background()

	loan := f.createLoan(t, userId, amt)
	_, err := f.svc.AcceptLoan(ctx, userId, loan.Id, true)
	require.NoError(t, err)

	res, err := f.svc.UpdateStatus(ctx, uuid.New(), loan.Id, &dto.UpdateLoanStatusRequest{Status: "active"})
	require.NoError(t, err)
	return res
}

func TestCreateLoanComputesTerms(t *testing.T) {
	f := newLoanFixture(t)
	userId := uuid.New()

	res := f.createLoan(t, userId, "10000")

	assert.Equal(t, "pending", res.Status)
	assert.True(t, res.InterestAmount.Equal(amount("1500")), "interest = %s", res.InterestAmount)
	assert.True(t, res.TotalRepayment.Equal(amount("11500")), "total = %s", res.TotalRepayment)
	assert.Equal(t, 30, res.TenureDays)
	assert.Equal(t, []string{events.TypeLoanCreated}, f.publisher.types())
}

func TestCreateLoanRejectsOutOfRangeAmount(t *testing.T) {
	f := newLoanFixture(t)

	_, err := f.svc.CreateLoan(context.Background(), uuid.New(), &dto.CreateLoanRequest{Amount: amount("500")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.CreateLoan(context.Background(), uuid.New(), &dto.CreateLoanRequest{Amount: amount("60000")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateLoanBlocksSecondOpenLoan(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.createLoan(t, userId, "5000")

	// A pending application does not block a replacement offer.
	_, err := f.svc.CreateLoan(ctx, userId, &dto.CreateLoanRequest{Amount: amount("6000")})
	require.NoError(t, err)

	_, err = f.svc.AcceptLoan(ctx, userId, loan.Id, true)
	require.NoError(t, err)

	_, err = f.svc.CreateLoan(ctx, userId, &dto.CreateLoanRequest{Amount: amount("7000")})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveLoan)

	// Another user is unaffected.
	_, err = f.svc.CreateLoan(ctx, uuid.New(), &dto.CreateLoanRequest{Amount: amount("7000")})
	assert.NoError(t, err)
}

func TestPreviewOfferIsReusedAtCreation(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	preview, err := f.svc.PreviewOffer(ctx, userId, &dto.CalculateOfferRequest{Amount: amount("2500")})
	require.NoError(t, err)

	created, err := f.svc.CreateLoan(ctx, userId, &dto.CreateLoanRequest{Amount: amount("2500")})
	require.NoError(t, err)

	// The cached preview is persisted verbatim, due date included.
	assert.True(t, created.DueDate.Equal(preview.DueDate),
		"due date %v differs from preview %v", created.DueDate, preview.DueDate)
	assert.True(t, created.TotalRepayment.Equal(preview.TotalRepayment))
}

func TestAcceptLoanTransitions(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.createLoan(t, userId, "3000")

	res, err := f.svc.AcceptLoan(ctx, userId, loan.Id, true)
	require.NoError(t, err)
	assert.Equal(t, "approved", res.Status)
	require.NotNil(t, res.ApprovedBy)
	assert.Equal(t, userId, *res.ApprovedBy)
	assert.NotNil(t, res.ApprovedAt)

	// Accepting twice is an invalid transition, not an idempotent no-op.
	_, err = f.svc.AcceptLoan(ctx, userId, loan.Id, true)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestAcceptLoanDecline(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.createLoan(t, userId, "3000")

	res, err := f.svc.AcceptLoan(ctx, userId, loan.Id, false)
	require.NoError(t, err)
	assert.Equal(t, "rejected", res.Status)
	assert.Nil(t, res.ApprovedBy)

	// Rejected is terminal.
	_, err = f.svc.AcceptLoan(ctx, userId, loan.Id, true)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestAcceptLoanOwnershipAndExistence(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.createLoan(t, userId, "3000")

	_, err := f.svc.AcceptLoan(ctx, uuid.New(), loan.Id, true)
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	_, err = f.svc.AcceptLoan(ctx, userId, uuid.New(), true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateStatusDisbursesAtomically(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()
	adminId := uuid.New()

	loan := f.createLoan(t, userId, "8000")
	_, err := f.svc.AcceptLoan(ctx, userId, loan.Id, true)
	require.NoError(t, err)

	res, err := f.svc.UpdateStatus(ctx, adminId, loan.Id, &dto.UpdateLoanStatusRequest{Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, "active", res.Status)
	assert.NotNil(t, res.DisbursedAt)

	txns, err := f.svc.GetTransactionsForLoan(ctx, userId, loan.Id)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "disbursement", txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(amount("8000")))
	assert.True(t, txns[0].BalanceAfter.Equal(amount("8000")))

	assert.Equal(t, []uuid.UUID{loan.Id}, f.auditor.ids)
}

func TestUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()
	adminId := uuid.New()

	loan := f.createLoan(t, userId, "8000")

	// pending cannot go straight to active or completed.
	for _, target := range []string{"active", "completed", "defaulted"} {
		_, err := f.svc.UpdateStatus(ctx, adminId, loan.Id, &dto.UpdateLoanStatusRequest{Status: target})
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "pending -> %s", target)
	}

	// No disbursement rows may exist after the failed attempts.
	txns, err := f.svc.GetTransactionsForLoan(ctx, userId, loan.Id)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestUpdateStatusRecordsUnderwritingDecision(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()
	adminId := uuid.New()

	loan := f.createLoan(t, userId, "4000")

	confidence := 0.92
	res, err := f.svc.UpdateStatus(ctx, adminId, loan.Id, &dto.UpdateLoanStatusRequest{
		Status:     "approved",
		Decision:   "approve",
		Confidence: &confidence,
	})
	require.NoError(t, err)
	assert.Equal(t, "approved", res.Status)
	assert.Equal(t, "approve", res.AiDecision)
	require.NotNil(t, res.ApprovedBy)
	assert.Equal(t, adminId, *res.ApprovedBy)
	require.NotNil(t, res.AiConfidence)
	assert.InDelta(t, 0.92, *res.AiConfidence, 1e-9)
}

func TestRecordRepaymentPartialKeepsLoanActive(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.activateLoan(t, userId, "10000")

	res, err := f.svc.RecordRepayment(ctx, userId, loan.Id, &dto.RecordRepaymentRequest{Amount: amount("4000")})
	require.NoError(t, err)
	assert.Equal(t, "active", res.Status)

	txns, err := f.svc.GetTransactionsForLoan(ctx, userId, loan.Id)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "repayment", txns[1].Type)
	assert.True(t, txns[1].BalanceAfter.Equal(amount("6000")), "balance = %s", txns[1].BalanceAfter)
}

func TestRecordRepaymentSettlementCompletesLoan(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.activateLoan(t, userId, "10000")

	_, err := f.svc.RecordRepayment(ctx, userId, loan.Id, &dto.RecordRepaymentRequest{Amount: amount("4000")})
	require.NoError(t, err)

	// Overpayment settles; the balance may go negative.
	res, err := f.svc.RecordRepayment(ctx, userId, loan.Id, &dto.RecordRepaymentRequest{Amount: amount("6500")})
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Status)

	txns, err := f.svc.GetTransactionsForLoan(ctx, userId, loan.Id)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.True(t, txns[2].BalanceAfter.Equal(amount("-500")), "balance = %s", txns[2].BalanceAfter)

	assert.Contains(t, f.publisher.types(), events.TypeLoanCompleted)

	// A completed loan takes no further repayments.
	_, err = f.svc.RecordRepayment(ctx, userId, loan.Id, &dto.RecordRepaymentRequest{Amount: amount("100")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestRecordRepaymentValidation(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.activateLoan(t, userId, "5000")

	_, err := f.svc.RecordRepayment(ctx, userId, loan.Id, &dto.RecordRepaymentRequest{Amount: amount("0")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.RecordRepayment(ctx, userId, loan.Id, &dto.RecordRepaymentRequest{Amount: amount("-50")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.RecordRepayment(ctx, uuid.New(), loan.Id, &dto.RecordRepaymentRequest{Amount: amount("50")})
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)
}

func TestRecordAdjustmentMovesBalanceWithoutStatusChange(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()
	adminId := uuid.New()

	loan := f.activateLoan(t, userId, "10000")

	fee, err := f.svc.RecordAdjustment(ctx, adminId, loan.Id, &dto.RecordAdjustmentRequest{
		Type:   "fee",
		Amount: amount("200"),
	})
	require.NoError(t, err)
	assert.True(t, fee.BalanceAfter.Equal(amount("10200")), "balance = %s", fee.BalanceAfter)

	refund, err := f.svc.RecordAdjustment(ctx, adminId, loan.Id, &dto.RecordAdjustmentRequest{
		Type:   "refund",
		Amount: amount("10500"),
	})
	require.NoError(t, err)
	assert.True(t, refund.BalanceAfter.Equal(amount("-300")), "balance = %s", refund.BalanceAfter)

	// Even a balance at or below zero via adjustment does not complete the loan.
	res, err := f.svc.GetLoan(ctx, userId, loan.Id)
	require.NoError(t, err)
	assert.Equal(t, "active", res.Status)
}

func TestRecordAdjustmentRequiresActiveLoan(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.createLoan(t, userId, "5000")

	_, err := f.svc.RecordAdjustment(ctx, uuid.New(), loan.Id, &dto.RecordAdjustmentRequest{
		Type:   "penalty",
		Amount: amount("100"),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestListLoansIsScopedToOwner(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	f.createLoan(t, alice, "2000")
	f.createLoan(t, bob, "3000")

	loans, err := f.svc.ListLoans(ctx, alice)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, alice, loans[0].UserId)
}

func TestGetTransactionsRequiresOwnership(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.activateLoan(t, userId, "5000")

	_, err := f.svc.GetTransactionsForLoan(ctx, uuid.New(), loan.Id)
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	_, err = f.svc.GetTransactionsForLoan(ctx, userId, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAcceptLoanEnforcesSingleOpenLoan(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	// Two pending offers may coexist; only one may be accepted.
	first := f.createLoan(t, userId, "2000")
	second := f.createLoan(t, userId, "3000")

	_, err := f.svc.AcceptLoan(ctx, userId, first.Id, true)
	require.NoError(t, err)

	_, err = f.svc.AcceptLoan(ctx, userId, second.Id, true)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveLoan)

	got, err := f.svc.GetLoan(ctx, userId, second.Id)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)

	// Declining the leftover offer is still allowed.
	declined, err := f.svc.AcceptLoan(ctx, userId, second.Id, false)
	require.NoError(t, err)
	assert.Equal(t, "rejected", declined.Status)
}

func TestUpdateStatusApprovalEnforcesSingleOpenLoan(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()
	adminId := uuid.New()

	first := f.createLoan(t, userId, "2000")
	second := f.createLoan(t, userId, "3000")

	_, err := f.svc.UpdateStatus(ctx, adminId, first.Id, &dto.UpdateLoanStatusRequest{Status: "approved"})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, adminId, second.Id, &dto.UpdateLoanStatusRequest{Status: "approved"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveLoan)

	// Once the first loan settles, the second offer becomes acceptable.
	_, err = f.svc.UpdateStatus(ctx, adminId, first.Id, &dto.UpdateLoanStatusRequest{Status: "active"})
	require.NoError(t, err)
	_, err = f.svc.RecordRepayment(ctx, userId, first.Id, &dto.RecordRepaymentRequest{Amount: amount("2300")})
	require.NoError(t, err)

	approved, err := f.svc.AcceptLoan(ctx, userId, second.Id, true)
	require.NoError(t, err)
	assert.Equal(t, "approved", approved.Status)
}

func TestGetTransactionScopesToOwner(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan := f.activateLoan(t, userId, "5000")

	txns, err := f.svc.GetTransactionsForLoan(ctx, userId, loan.Id)
	require.NoError(t, err)
	require.Len(t, txns, 1)

	got, err := f.svc.GetTransaction(ctx, userId, txns[0].Id)
	require.NoError(t, err)
	assert.Equal(t, txns[0].Id, got.Id)
	assert.Equal(t, "disbursement", got.Type)

	_, err = f.svc.GetTransaction(ctx, uuid.New(), txns[0].Id)
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	_, err = f.svc.GetTransaction(ctx, userId, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
