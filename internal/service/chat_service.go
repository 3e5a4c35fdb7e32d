package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-lending-be/internal/constant"
	"ai-lending-be/internal/dto"
	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/pkg/apperrors"
	"ai-lending-be/internal/pkg/logger"
	"ai-lending-be/internal/repository/memory"
	"ai-lending-be/internal/repository/specification"
	"ai-lending-be/internal/repository/unitofwork"
	"ai-lending-be/pkg/agent"
	"ai-lending-be/pkg/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IChatService interface {
	SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	GetThread(ctx context.Context, userId uuid.UUID) (*dto.GetThreadResponse, error)
	GetHistory(ctx context.Context, userId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	CloseThread(ctx context.Context, userId uuid.UUID) error
}

// chatService is the orchestrator: each inbound turn is resolved to a thread,
// forwarded to the agent gateway, any structured intent is executed against
// the ledger, and both sides of the exchange are persisted. The turn never
// fails outright once the user's message is stored.
type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	provider       agent.Provider
	loanService    ILoanService
	turnMutex      *memory.KeyedMutex
	publisher      EventPublisher
	gatewayTimeout time.Duration
	log            logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	provider agent.Provider,
	loanService ILoanService,
	turnMutex *memory.KeyedMutex,
	publisher EventPublisher,
	gatewayTimeout time.Duration,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		provider:       provider,
		loanService:    loanService,
		turnMutex:      turnMutex,
		publisher:      publisher,
		gatewayTimeout: gatewayTimeout,
		log:            log,
	}
}

func (cs *chatService) SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	// One turn at a time per user; turns for distinct users run in parallel.
	cs.turnMutex.Lock(userId.String())
	defer cs.turnMutex.Unlock(userId.String())

	thread, err := cs.resolveThread(ctx, userId)
	if err != nil {
		return nil, err
	}

	// The user's message is committed before the gateway is consulted, so a
	// gateway failure can never lose it.
	userMsg := entity.Message{
		Id:        uuid.New(),
		ThreadId:  thread.Id,
		Role:      constant.MessageRoleUser,
		Content:   req.Message,
		CreatedAt: time.Now(),
	}
	if err := cs.appendMessage(ctx, &userMsg); err != nil {
		return nil, err
	}

	replyText, degraded := cs.consultAgent(ctx, userId, thread, req.Message)

	assistantMsg := entity.Message{
		Id:        uuid.New(),
		ThreadId:  thread.Id,
		Role:      constant.MessageRoleAssistant,
		Content:   replyText,
		CreatedAt: time.Now(),
	}
	if err := cs.appendMessage(ctx, &assistantMsg); err != nil {
		return nil, err
	}

	return &dto.SendChatResponse{
		ThreadId: thread.Id,
		Sent: &dto.SendChatResponseMessage{
			Id:        userMsg.Id,
			Role:      userMsg.Role,
			Content:   userMsg.Content,
			CreatedAt: userMsg.CreatedAt,
		},
		Reply: &dto.SendChatResponseMessage{
			Id:        assistantMsg.Id,
			Role:      assistantMsg.Role,
			Content:   assistantMsg.Content,
			CreatedAt: assistantMsg.CreatedAt,
		},
		Degraded: degraded,
	}, nil
}

// consultAgent runs the gateway call bounded by the configured timeout and
// turns the outcome into reply text. Gateway failures and malformed intents
// degrade; they never propagate.
func (cs *chatService) consultAgent(ctx context.Context, userId uuid.UUID, thread *entity.ConversationThread, utterance string) (string, bool) {
	if thread.AgentThreadId == "" {
		// The agent handle could not be provisioned when the thread was
		// created. Try once more now.
		if handle, err := cs.provider.CreateThread(ctx); err == nil {
			thread.AgentThreadId = handle
			uow := cs.uowFactory.NewUnitOfWork(ctx)
			if err := uow.ConversationThreadRepository().Update(ctx, thread); err != nil {
				cs.log.Warn("chat_service", "failed to persist agent handle", map[string]interface{}{
					"thread_id": thread.Id.String(),
					"error":     err.Error(),
				})
			}
		} else {
			return constant.DegradedReply, true
		}
	}

	gwCtx, cancel := context.WithTimeout(ctx, cs.gatewayTimeout)
	defer cancel()

	turn, err := cs.provider.Converse(gwCtx, thread.AgentThreadId, utterance)
	if err != nil {
		cs.log.Warn("chat_service", "gateway failure, degrading turn", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
		return constant.DegradedReply, true
	}

	if turn.Intent != nil {
		return cs.executeIntent(ctx, userId, turn.Intent), false
	}
	if turn.Reply != "" {
		return turn.Reply, false
	}
	return constant.DegradedReply, true
}

// executeIntent runs the business operation the assistant requested and
// phrases the outcome conversationally. Business-rule violations become
// plain-language replies, not errors.
func (cs *chatService) executeIntent(ctx context.Context, userId uuid.UUID, intent *agent.Intent) string {
	switch intent.Kind {
	case agent.IntentComputeLoanOffer:
		res, err := cs.loanService.CreateLoan(ctx, userId, &dto.CreateLoanRequest{
			Amount:       intent.ComputeOffer.Amount,
			InterestRate: intent.ComputeOffer.InterestRate,
			TenureDays:   intent.ComputeOffer.TenureDays,
		})
		if err != nil {
			return cs.businessReply(err)
		}
		return fmt.Sprintf(
			"Here's your loan offer: KES %s for %d days at %s%% interest. You'd repay KES %s in total by %s. Your loan reference is %s. Would you like to accept?",
			res.Amount.StringFixed(2), res.TenureDays, res.InterestRate.String(),
			res.TotalRepayment.StringFixed(2), res.DueDate.Format("2 January 2006"), res.Id)

	case agent.IntentStoreAcceptance:
		res, err := cs.loanService.AcceptLoan(ctx, userId, intent.Acceptance.LoanID, intent.Acceptance.Accepted)
		if err != nil {
			return cs.businessReply(err)
		}
		if intent.Acceptance.Accepted {
			return fmt.Sprintf(
				"Congratulations! Your loan of KES %s is approved. The money will be sent to you shortly, and repayment of KES %s is due by %s.",
				res.Amount.StringFixed(2), res.TotalRepayment.StringFixed(2), res.DueDate.Format("2 January 2006"))
		}
		return "No problem, I've cancelled that offer. Let me know if you'd like to look at different loan terms."

	case agent.IntentGetLoanInfo:
		return cs.loanSummary(ctx, userId)

	case agent.IntentCompleteOnboarding:
		if err := cs.upsertProfile(ctx, userId, intent.Onboarding); err != nil {
			return cs.businessReply(err)
		}
		return fmt.Sprintf(
			"Thank you! I've saved the details for %s. You're all set - would you like to see what loan you qualify for?",
			intent.Onboarding.Profile.BusinessName)

	default:
		cs.log.Warn("chat_service", "IntentParseWarning: unhandled intent kind", map[string]interface{}{
			"kind": string(intent.Kind),
		})
		return constant.DegradedReply
	}
}

func (cs *chatService) loanSummary(ctx context.Context, userId uuid.UUID) string {
	loans, err := cs.loanService.ListLoans(ctx, userId)
	if err != nil {
		return cs.businessReply(err)
	}
	if len(loans) == 0 {
		return "You don't have any loans with us yet. Tell me about your business and I can prepare an offer for you."
	}

	var b strings.Builder
	b.WriteString("Here's where you stand:\n")
	for _, l := range loans {
		b.WriteString(fmt.Sprintf("- KES %s loan, %s, total repayment KES %s, due %s\n",
			l.Amount.StringFixed(2), l.Status, l.TotalRepayment.StringFixed(2), l.DueDate.Format("2 January 2006")))
	}

	latest := loans[len(loans)-1]
	txns, err := cs.loanService.GetTransactionsForLoan(ctx, userId, latest.Id)
	if err == nil && len(txns) > 0 {
		last := txns[len(txns)-1]
		b.WriteString(fmt.Sprintf("Your latest transaction was a %s of KES %s, leaving a balance of KES %s.",
			last.Type, last.Amount.StringFixed(2), last.BalanceAfter.StringFixed(2)))
	}
	return b.String()
}

// businessReply converts ledger errors into conversational language. Anything
// that is not a business-rule violation degrades the turn.
func (cs *chatService) businessReply(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrDuplicateActiveLoan):
		return "You already have a loan in progress with us. Let's settle that one before we talk about a new one."
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "I couldn't prepare that offer: " + userFacingDetail(err) + ". Could you try a different amount?"
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return "That loan isn't in a state where I can do that. Would you like me to check its current status?"
	case errors.Is(err, apperrors.ErrNotOwner), errors.Is(err, apperrors.ErrNotFound):
		return "I couldn't find that loan under your account. Would you like me to list your loans?"
	default:
		return constant.DegradedReply
	}
}

// userFacingDetail strips the sentinel prefix so the detail reads naturally.
func userFacingDetail(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}

func (cs *chatService) upsertProfile(ctx context.Context, userId uuid.UUID, args *agent.OnboardingArgs) error {
	raw, err := json.Marshal(args.Profile)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer uow.Rollback()

	now := time.Now()
	profile, err := uow.CustomerProfileRepository().FindOne(ctx, specification.OwnedBy{UserID: userId})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	if profile == nil {
		profile = &entity.CustomerProfile{
			Id:        uuid.New(),
			UserId:    userId,
			CreatedAt: now,
		}
		applyProfileFields(profile, &args.Profile, raw, now)
		if err := uow.CustomerProfileRepository().Create(ctx, profile); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
	} else {
		applyProfileFields(profile, &args.Profile, raw, now)
		if err := uow.CustomerProfileRepository().Update(ctx, profile); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	if cs.publisher != nil {
		if err := cs.publisher.Publish(ctx, events.NewOnboardingCompletedEvent(userId, args.Profile.BusinessName)); err != nil {
			cs.log.Warn("chat_service", "event publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

func applyProfileFields(profile *entity.CustomerProfile, fields *agent.ProfileFields, raw []byte, now time.Time) {
	profile.BusinessName = fields.BusinessName
	profile.BusinessType = fields.BusinessType
	profile.BusinessLocation = fields.BusinessLocation
	profile.YearsInBusiness = fields.YearsInBusiness
	profile.MonthlyRevenue = fields.MonthlyRevenue
	profile.MonthlyExpenses = fields.MonthlyExpenses
	profile.OnboardingCompleted = true
	profile.OnboardingCompletedAt = &now
	profile.RawProfile = raw
}

// resolveThread returns the user's active thread, creating one (with its
// greeting) if none exists. A concurrent first turn loses the insert race and
// re-reads the winner, so at most one active thread per user ever persists.
func (cs *chatService) resolveThread(ctx context.Context, userId uuid.UUID) (*entity.ConversationThread, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ConversationThreadRepository().FindOne(ctx, specification.ActiveThreadByUser{UserID: userId})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if thread != nil {
		return thread, nil
	}

	// The agent handle is provisioned before the DB row. If the gateway is
	// down the thread is still created; the handle is retried on first use.
	handle, err := cs.provider.CreateThread(ctx)
	if err != nil {
		cs.log.Warn("chat_service", "agent thread creation failed, deferring handle", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
		handle = ""
	}

	now := time.Now()
	newThread := entity.ConversationThread{
		Id:            uuid.New(),
		UserId:        userId,
		AgentThreadId: handle,
		Status:        constant.ThreadStatusActive,
		CreatedAt:     now,
	}
	greeting := entity.Message{
		Id:        uuid.New(),
		ThreadId:  newThread.Id,
		Role:      constant.MessageRoleAssistant,
		Content:   constant.GreetingReply,
		CreatedAt: now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer uow.Rollback()

	if err := uow.ConversationThreadRepository().Create(ctx, &newThread); err != nil {
		uow.Rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race; another request holds the active thread.
			winner, findErr := cs.uowFactory.NewUnitOfWork(ctx).ConversationThreadRepository().
				FindOne(ctx, specification.ActiveThreadByUser{UserID: userId})
			if findErr != nil {
				return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, findErr)
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if err := uow.MessageRepository().Create(ctx, &greeting); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	return &newThread, nil
}

func (cs *chatService) appendMessage(ctx context.Context, msg *entity.Message) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().Create(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return uow.Commit()
}

func (cs *chatService) GetThread(ctx context.Context, userId uuid.UUID) (*dto.GetThreadResponse, error) {
	thread, err := cs.resolveThread(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &dto.GetThreadResponse{
		Id:        thread.Id,
		Status:    thread.Status,
		CreatedAt: thread.CreatedAt,
		UpdatedAt: thread.UpdatedAt,
	}, nil
}

func (cs *chatService) GetHistory(ctx context.Context, userId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ConversationThreadRepository().FindOne(ctx, specification.ActiveThreadByUser{UserID: userId})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if thread == nil {
		return []*dto.GetChatHistoryResponse{}, nil
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByThreadID{ThreadID: thread.Id},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]*dto.GetChatHistoryResponse, len(messages))
	for i, m := range messages {
		res[i] = &dto.GetChatHistoryResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return res, nil
}

// CloseThread retires the active thread. The next turn starts a fresh
// conversation with a new agent handle.
func (cs *chatService) CloseThread(ctx context.Context, userId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ConversationThreadRepository().FindOne(ctx, specification.ActiveThreadByUser{UserID: userId})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if thread == nil {
		return apperrors.ErrNotFound
	}

	thread.Status = constant.ThreadStatusClosed
	if err := uow.ConversationThreadRepository().Update(ctx, thread); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return nil
}
