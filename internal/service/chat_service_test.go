package service

import (
	"context"
	"errors"
	"testing"

	"ai-lending-be/internal/constant"
	"ai-lending-be/internal/dto"
	"ai-lending-be/internal/model"
	"ai-lending-be/pkg/agent"
	"ai-lending-be/pkg/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *chatFixture) send(t *testing.T, userId uuid.UUID, msg string) *dto.SendChatResponse {
	t.Helper()
	res, err := f.svc.SendChat(context.Background(), userId, &dto.SendChatRequest{Message: msg})
	require.NoError(t, err)
	return res
}

func TestSendChatPersistsBothSidesOfTheTurn(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	f.provider.turns = []*agent.Turn{{Reply: "Tell me about your business."}}

	res := f.send(t, userId, "Hi Lucy")

	assert.False(t, res.Degraded)
	assert.Equal(t, "Hi Lucy", res.Sent.Content)
	assert.Equal(t, "Tell me about your business.", res.Reply.Content)

	history, err := f.svc.GetHistory(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, constant.GreetingReply, history[0].Content)
	assert.Equal(t, "user", history[1].Role)
	assert.Equal(t, "assistant", history[2].Role)
}

func TestSendChatReusesWinnerWhenThreadRaceIsLost(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()
	winnerId := uuid.New()

	// A competing first turn commits its active thread between our existence
	// check and insert; the unique index rejects ours and we must adopt the
	// winner instead of failing the turn.
	f.provider.onCreateThread = func() {
		require.NoError(t, f.db.Create(&model.ConversationThread{
			Id:            winnerId,
			UserId:        userId,
			AgentThreadId: "thr_winner",
			Status:        constant.ThreadStatusActive,
		}).Error)
	}

	res := f.send(t, userId, "hello")
	assert.Equal(t, winnerId, res.ThreadId)
	assert.False(t, res.Degraded)

	var count int64
	require.NoError(t, f.db.Model(&model.ConversationThread{}).
		Where("user_id = ?", userId).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// The winner's gateway handle carried the turn.
	require.Len(t, f.provider.utterances, 1)
	thread, err := f.svc.GetThread(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, winnerId, thread.Id)
}

func TestSendChatReusesActiveThread(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	first := f.send(t, userId, "first")
	second := f.send(t, userId, "second")

	assert.Equal(t, first.ThreadId, second.ThreadId)
	assert.Equal(t, 1, f.provider.threadCounter)
}

func TestSendChatDegradesOnGatewayFailure(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	f.provider.converseErr = errors.New("upstream 503")

	res := f.send(t, userId, "are you there?")

	assert.True(t, res.Degraded)
	assert.Equal(t, constant.DegradedReply, res.Reply.Content)

	// The user's message survived the failed turn.
	history, err := f.svc.GetHistory(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "are you there?", history[1].Content)
}

func TestSendChatDegradesOnEmptyTurn(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	f.provider.turns = []*agent.Turn{{}}

	res := f.send(t, userId, "hello?")
	assert.True(t, res.Degraded)
	assert.Equal(t, constant.DegradedReply, res.Reply.Content)
}

func TestSendChatRecoversDeferredAgentHandle(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	// Thread creation proceeds even though the gateway cannot allocate a
	// remote context; the turn degrades.
	f.provider.createErr = errors.New("gateway down")
	res := f.send(t, userId, "first try")
	assert.True(t, res.Degraded)

	// Gateway back up: the same thread acquires a handle and converses.
	f.provider.createErr = nil
	f.provider.turns = []*agent.Turn{{Reply: "Back online."}}
	res2 := f.send(t, userId, "second try")

	assert.False(t, res2.Degraded)
	assert.Equal(t, "Back online.", res2.Reply.Content)
	assert.Equal(t, res.ThreadId, res2.ThreadId)
}

func TestSendChatExecutesOfferIntent(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	f.provider.turns = []*agent.Turn{{
		Intent: &agent.Intent{
			Kind:         agent.IntentComputeLoanOffer,
			ComputeOffer: &agent.ComputeOfferArgs{Amount: decimal.NewFromInt(5000)},
		},
	}}

	res := f.send(t, userId, "I need 5000 shillings")

	assert.False(t, res.Degraded)
	assert.Contains(t, res.Reply.Content, "KES 5000.00")
	assert.Contains(t, res.Reply.Content, "Would you like to accept?")

	loans, err := f.loans.ListLoans(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "pending", loans[0].Status)
	assert.Contains(t, res.Reply.Content, loans[0].Id.String())
}

func TestSendChatTurnsBusinessErrorsIntoReplies(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	// An approved loan blocks the next application.
	first, err := f.loans.CreateLoan(ctx, userId, &dto.CreateLoanRequest{Amount: decimal.NewFromInt(5000)})
	require.NoError(t, err)
	_, err = f.loans.AcceptLoan(ctx, userId, first.Id, true)
	require.NoError(t, err)

	f.provider.turns = []*agent.Turn{{
		Intent: &agent.Intent{
			Kind:         agent.IntentComputeLoanOffer,
			ComputeOffer: &agent.ComputeOfferArgs{Amount: decimal.NewFromInt(8000)},
		},
	}}

	res := f.send(t, userId, "can I get another loan?")

	assert.False(t, res.Degraded, "a business refusal is a normal turn")
	assert.Contains(t, res.Reply.Content, "already have a loan in progress")

	loans, err := f.loans.ListLoans(ctx, userId)
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func TestSendChatExecutesAcceptanceIntent(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	loan, err := f.loans.CreateLoan(ctx, userId, &dto.CreateLoanRequest{Amount: decimal.NewFromInt(5000)})
	require.NoError(t, err)

	f.provider.turns = []*agent.Turn{{
		Intent: &agent.Intent{
			Kind:       agent.IntentStoreAcceptance,
			Acceptance: &agent.AcceptanceArgs{LoanID: loan.Id, Accepted: true},
		},
	}}

	res := f.send(t, userId, "yes, I accept")

	assert.Contains(t, res.Reply.Content, "Congratulations")

	updated, err := f.loans.GetLoan(ctx, userId, loan.Id)
	require.NoError(t, err)
	assert.Equal(t, "approved", updated.Status)
}

func TestSendChatHandlesUnknownLoanConversationally(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	f.provider.turns = []*agent.Turn{{
		Intent: &agent.Intent{
			Kind:       agent.IntentStoreAcceptance,
			Acceptance: &agent.AcceptanceArgs{LoanID: uuid.New(), Accepted: true},
		},
	}}

	res := f.send(t, userId, "I accept loan xyz")

	assert.False(t, res.Degraded)
	assert.Contains(t, res.Reply.Content, "couldn't find that loan")
}

func TestSendChatExecutesOnboardingIntent(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	revenue := decimal.NewFromInt(45000)
	f.provider.turns = []*agent.Turn{{
		Intent: &agent.Intent{
			Kind: agent.IntentCompleteOnboarding,
			Onboarding: &agent.OnboardingArgs{
				Profile: agent.ProfileFields{
					BusinessName:     "Mama Njeri Groceries",
					BusinessType:     "retail",
					BusinessLocation: "Nairobi",
					MonthlyRevenue:   &revenue,
				},
			},
		},
	}}

	res := f.send(t, userId, "my shop is called Mama Njeri Groceries")

	assert.Contains(t, res.Reply.Content, "Mama Njeri Groceries")

	var profile model.CustomerProfile
	require.NoError(t, f.db.Where("user_id = ?", userId).First(&profile).Error)
	assert.True(t, profile.OnboardingCompleted)
	assert.Equal(t, "Mama Njeri Groceries", profile.BusinessName)
	assert.NotEmpty(t, profile.RawProfile)

	assert.Contains(t, f.publisher.types(), events.TypeOnboardingCompleted)
}

func TestSendChatOnboardingUpsertIsIdempotent(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	intentFor := func(name string) *agent.Turn {
		return &agent.Turn{Intent: &agent.Intent{
			Kind:       agent.IntentCompleteOnboarding,
			Onboarding: &agent.OnboardingArgs{Profile: agent.ProfileFields{BusinessName: name}},
		}}
	}

	f.provider.turns = []*agent.Turn{intentFor("First Name"), intentFor("Corrected Name")}
	f.send(t, userId, "onboard me")
	f.send(t, userId, "actually the name is different")

	var count int64
	require.NoError(t, f.db.Model(&model.CustomerProfile{}).Where("user_id = ?", userId).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var profile model.CustomerProfile
	require.NoError(t, f.db.Where("user_id = ?", userId).First(&profile).Error)
	assert.Equal(t, "Corrected Name", profile.BusinessName)
}

func TestSendChatLoanInfoSummary(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	_, err := f.loans.CreateLoan(ctx, userId, &dto.CreateLoanRequest{Amount: decimal.NewFromInt(5000)})
	require.NoError(t, err)

	f.provider.turns = []*agent.Turn{{
		Intent: &agent.Intent{Kind: agent.IntentGetLoanInfo, LoanInfo: &agent.LoanInfoArgs{}},
	}}

	res := f.send(t, userId, "what do I owe?")
	assert.Contains(t, res.Reply.Content, "KES 5000.00")
	assert.Contains(t, res.Reply.Content, "pending")
}

func TestGetThreadCreatesOnFirstAccess(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	thread, err := f.svc.GetThread(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, constant.ThreadStatusActive, thread.Status)

	again, err := f.svc.GetThread(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, thread.Id, again.Id)
}

func TestGetHistoryWithoutThreadIsEmpty(t *testing.T) {
	f := newChatFixture(t)

	history, err := f.svc.GetHistory(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCloseThreadStartsAFreshConversation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	first := f.send(t, userId, "hello")

	require.NoError(t, f.svc.CloseThread(ctx, userId))

	// History follows the active thread, so it resets.
	history, err := f.svc.GetHistory(ctx, userId)
	require.NoError(t, err)
	assert.Empty(t, history)

	second := f.send(t, userId, "hello again")
	assert.NotEqual(t, first.ThreadId, second.ThreadId)
}

func TestCloseThreadWithoutActiveThread(t *testing.T) {
	f := newChatFixture(t)

	err := f.svc.CloseThread(context.Background(), uuid.New())
	assert.Error(t, err)
}
