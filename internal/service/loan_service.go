package service

import (
	"context"
	"fmt"
	"time"

	"ai-lending-be/internal/dto"
	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/pkg/apperrors"
	"ai-lending-be/internal/pkg/logger"
	"ai-lending-be/internal/repository/memory"
	"ai-lending-be/internal/repository/specification"
	"ai-lending-be/internal/repository/unitofwork"
	"ai-lending-be/pkg/events"
	"ai-lending-be/pkg/offer"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPublisher is the slice of the NATS publisher the services need.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ILoanService interface {
	PreviewOffer(ctx context.Context, userId uuid.UUID, req *dto.CalculateOfferRequest) (*dto.OfferResponse, error)
	CreateLoan(ctx context.Context, userId uuid.UUID, req *dto.CreateLoanRequest) (*dto.LoanResponse, error)
	AcceptLoan(ctx context.Context, userId uuid.UUID, loanId uuid.UUID, accepted bool) (*dto.LoanResponse, error)
	UpdateStatus(ctx context.Context, actorId uuid.UUID, loanId uuid.UUID, req *dto.UpdateLoanStatusRequest) (*dto.LoanResponse, error)
	RecordRepayment(ctx context.Context, userId uuid.UUID, loanId uuid.UUID, req *dto.RecordRepaymentRequest) (*dto.LoanResponse, error)
	RecordAdjustment(ctx context.Context, actorId uuid.UUID, loanId uuid.UUID, req *dto.RecordAdjustmentRequest) (*dto.TransactionResponse, error)
	ListLoans(ctx context.Context, userId uuid.UUID) ([]*dto.LoanResponse, error)
	GetLoan(ctx context.Context, userId uuid.UUID, loanId uuid.UUID) (*dto.LoanResponse, error)
	GetTransactionsForLoan(ctx context.Context, userId uuid.UUID, loanId uuid.UUID) ([]*dto.TransactionResponse, error)
	GetTransaction(ctx context.Context, userId uuid.UUID, transactionId uuid.UUID) (*dto.TransactionResponse, error)
}

type loanService struct {
	uowFactory  unitofwork.RepositoryFactory
	calculator  *offer.Calculator
	offerCache  *memory.OfferCache
	ledgerMutex *memory.KeyedMutex
	auditor     ILedgerAuditService
	publisher   EventPublisher
	log         logger.ILogger
}

func NewLoanService(
	uowFactory unitofwork.RepositoryFactory,
	calculator *offer.Calculator,
	offerCache *memory.OfferCache,
	ledgerMutex *memory.KeyedMutex,
	auditor ILedgerAuditService,
	publisher EventPublisher,
	log logger.ILogger,
) ILoanService {
	return &loanService{
		uowFactory:  uowFactory,
		calculator:  calculator,
		offerCache:  offerCache,
		ledgerMutex: ledgerMutex,
		auditor:     auditor,
		publisher:   publisher,
		log:         log,
	}
}

// PreviewOffer runs the pure calculation and caches the result so that a
// follow-up CreateLoan with the same inputs persists the identical figures.
func (ls *loanService) PreviewOffer(ctx context.Context, userId uuid.UUID, req *dto.CalculateOfferRequest) (*dto.OfferResponse, error) {
	o, err := ls.calculator.Calculate(req.Amount, req.InterestRate, req.TenureDays, time.Now())
	if err != nil {
		return nil, err
	}

	ls.offerCache.Save(userId, o)

	return offerToResponse(o), nil
}

func (ls *loanService) CreateLoan(ctx context.Context, userId uuid.UUID, req *dto.CreateLoanRequest) (*dto.LoanResponse, error) {
	// Serialize per user so two concurrent applications cannot both pass the
	// duplicate check.
	ls.ledgerMutex.Lock(userId.String())
	defer ls.ledgerMutex.Unlock(userId.String())

	o, cached := ls.offerCache.Get(userId)
	if !cached || !o.Matches(req.Amount, req.InterestRate, req.TenureDays) {
		var err error
		o, err = ls.calculator.Calculate(req.Amount, req.InterestRate, req.TenureDays, time.Now())
		if err != nil {
			return nil, err
		}
	}

	uow := ls.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer uow.Rollback()

	open, err := uow.LoanRepository().Count(ctx,
		specification.OwnedBy{UserID: userId},
		specification.ByStatuses{Statuses: []entity.LoanStatus{entity.LoanStatusApproved, entity.LoanStatusActive}},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if open > 0 {
		return nil, apperrors.ErrDuplicateActiveLoan
	}

	now := time.Now()
	loan := entity.Loan{
		Id:             uuid.New(),
		UserId:         userId,
		Amount:         o.Amount,
		InterestRate:   o.InterestRate,
		TenureDays:     o.TenureDays,
		InterestAmount: o.InterestAmount,
		TotalRepayment: o.TotalRepayment,
		Status:         entity.LoanStatusPending,
		DueDate:        o.DueDate,
		CreatedAt:      now,
	}

	if err := uow.LoanRepository().Create(ctx, &loan); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	ls.offerCache.Delete(userId)
	ls.publishEvent(ctx, events.NewLoanEvent(events.TypeLoanCreated, loan.Id, userId, loan.Amount))

	ls.log.Info("loan_service", "loan created", map[string]interface{}{
		"loan_id": loan.Id.String(),
		"user_id": userId.String(),
		"amount":  loan.Amount.String(),
	})

	return loanToResponse(&loan), nil
}

// AcceptLoan handles the customer's own accept/reject of a pending offer.
func (ls *loanService) AcceptLoan(ctx context.Context, userId uuid.UUID, loanId uuid.UUID, accepted bool) (*dto.LoanResponse, error) {
	// Serialize per user first: two concurrent accepts of different pending
	// loans must not both slip past the open-loan check. Lock order is
	// always user then loan.
	ls.ledgerMutex.Lock(userId.String())
	defer ls.ledgerMutex.Unlock(userId.String())
	ls.ledgerMutex.Lock(loanId.String())
	defer ls.ledgerMutex.Unlock(loanId.String())

	uow := ls.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer uow.Rollback()

	loan, err := uow.LoanRepository().FindOne(ctx, specification.ByID{ID: loanId})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if loan == nil {
		return nil, apperrors.ErrNotFound
	}
	if loan.UserId != userId {
		return nil, apperrors.ErrNotOwner
	}

	target := entity.LoanStatusApproved
	if !accepted {
		target = entity.LoanStatusRejected
	}
	if !entity.CanTransition(loan.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, loan.Status, target)
	}
	if target == entity.LoanStatusApproved {
		if err := ls.checkNoOtherOpenLoan(ctx, uow, loan); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	loan.Status = target
	if accepted {
		loan.ApprovedAt = &now
		loan.ApprovedBy = &userId
	}

	if err := uow.LoanRepository().Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	eventType := events.TypeLoanApproved
	if !accepted {
		eventType = events.TypeLoanRejected
	}
	ls.publishEvent(ctx, events.NewLoanEvent(eventType, loan.Id, userId, loan.Amount))

	return loanToResponse(loan), nil
}

// UpdateStatus is the privileged transition path. Entering active performs
// the disbursement: the status flip and the disbursement transaction commit
// together or not at all.
func (ls *loanService) UpdateStatus(ctx context.Context, actorId uuid.UUID, loanId uuid.UUID, req *dto.UpdateLoanStatusRequest) (*dto.LoanResponse, error) {
	// The open-loan check is per user, so lock the owner before the loan.
	// Ownership is immutable, so the unlocked pre-read is safe.
	owner, err := ls.loanOwner(ctx, loanId)
	if err != nil {
		return nil, err
	}
	ls.ledgerMutex.Lock(owner.String())
	defer ls.ledgerMutex.Unlock(owner.String())
	ls.ledgerMutex.Lock(loanId.String())
	defer ls.ledgerMutex.Unlock(loanId.String())

	target := entity.LoanStatus(req.Status)

	uow := ls.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer uow.Rollback()

	loan, err := uow.LoanRepository().FindOne(ctx, specification.ByID{ID: loanId})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if loan == nil {
		return nil, apperrors.ErrNotFound
	}
	if !entity.CanTransition(loan.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, loan.Status, target)
	}

	now := time.Now()
	loan.Status = target
	if req.Decision != "" {
		loan.AiDecision = req.Decision
	}
	if req.Confidence != nil {
		loan.AiConfidence = req.Confidence
	}

	var disbursement *entity.Transaction
	switch target {
	case entity.LoanStatusApproved:
		if err := ls.checkNoOtherOpenLoan(ctx, uow, loan); err != nil {
			return nil, err
		}
		loan.ApprovedAt = &now
		loan.ApprovedBy = &actorId
	case entity.LoanStatusActive:
		loan.DisbursedAt = &now
		balance, err := ls.runningBalance(ctx, uow, loanId)
		if err != nil {
			return nil, err
		}
		disbursement = &entity.Transaction{
			Id:           uuid.New(),
			LoanId:       loan.Id,
			UserId:       loan.UserId,
			Type:         entity.TransactionTypeDisbursement,
			Amount:       loan.Amount,
			BalanceAfter: balance.Add(loan.Amount),
			Notes:        "loan disbursement",
			CreatedAt:    now,
		}
	}

	if err := uow.LoanRepository().Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if disbursement != nil {
		if err := uow.TransactionRepository().Create(ctx, disbursement); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	ls.publishEvent(ctx, events.NewLoanEvent(statusEventType(target), loan.Id, loan.UserId, loan.Amount))
	if disbursement != nil {
		ls.auditor.Enqueue(loan.Id)
	}

	ls.log.Info("loan_service", "loan status updated", map[string]interface{}{
		"loan_id":  loan.Id.String(),
		"actor_id": actorId.String(),
		"status":   string(target),
	})

	return loanToResponse(loan), nil
}

// RecordRepayment appends a repayment to the ledger. Settling the balance
// (running balance <= 0) completes the loan in the same transaction.
func (ls *loanService) RecordRepayment(ctx context.Context, userId uuid.UUID, loanId uuid.UUID, req *dto.RecordRepaymentRequest) (*dto.LoanResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: repayment amount must be positive", apperrors.ErrInvalidInput)
	}

	ls.ledgerMutex.Lock(loanId.String())
	defer ls.ledgerMutex.Unlock(loanId.String())

	uow := ls.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer uow.Rollback()

	loan, err := uow.LoanRepository().FindOne(ctx, specification.ByID{ID: loanId})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if loan == nil {
		return nil, apperrors.ErrNotFound
	}
	if loan.UserId != userId {
		return nil, apperrors.ErrNotOwner
	}
	if loan.Status != entity.LoanStatusActive {
		return nil, fmt.Errorf("%w: repayments require an active loan, got %s", apperrors.ErrInvalidTransition, loan.Status)
	}

	balance, err := ls.runningBalance(ctx, uow, loanId)
	if err != nil {
		return nil, err
	}
	newBalance := balance.Sub(req.Amount)

	now := time.Now()
	txn := entity.Transaction{
		Id:           uuid.New(),
		LoanId:       loan.Id,
		UserId:       loan.UserId,
		Type:         entity.TransactionTypeRepayment,
		Amount:       req.Amount,
		BalanceAfter: newBalance,
		Notes:        req.Notes,
		CreatedAt:    now,
	}
	if err := uow.TransactionRepository().Create(ctx, &txn); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	settled := newBalance.LessThanOrEqual(decimal.Zero)
	if settled {
		loan.Status = entity.LoanStatusCompleted
		if err := uow.LoanRepository().Update(ctx, loan); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	ls.publishEvent(ctx, events.NewRepaymentEvent(loan.Id, userId, req.Amount, newBalance))
	if settled {
		ls.publishEvent(ctx, events.NewLoanEvent(events.TypeLoanCompleted, loan.Id, userId, loan.Amount))
	}
	ls.auditor.Enqueue(loan.Id)

	return loanToResponse(loan), nil
}

// RecordAdjustment appends a fee, penalty or refund. Only repayments settle
// a loan; an adjustment never flips status.
func (ls *loanService) RecordAdjustment(ctx context.Context, actorId uuid.UUID, loanId uuid.UUID, req *dto.RecordAdjustmentRequest) (*dto.TransactionResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: adjustment amount must be positive", apperrors.ErrInvalidInput)
	}

	txnType := entity.TransactionType(req.Type)

	ls.ledgerMutex.Lock(loanId.String())
	defer ls.ledgerMutex.Unlock(loanId.String())

	uow := ls.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer uow.Rollback()

	loan, err := uow.LoanRepository().FindOne(ctx, specification.ByID{ID: loanId})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if loan == nil {
		return nil, apperrors.ErrNotFound
	}
	if loan.Status != entity.LoanStatusActive {
		return nil, fmt.Errorf("%w: adjustments require an active loan, got %s", apperrors.ErrInvalidTransition, loan.Status)
	}

	balance, err := ls.runningBalance(ctx, uow, loanId)
	if err != nil {
		return nil, err
	}
	signed := req.Amount.Mul(txnType.Sign())

	now := time.Now()
	txn := entity.Transaction{
		Id:           uuid.New(),
		LoanId:       loan.Id,
		UserId:       loan.UserId,
		Type:         txnType,
		Amount:       req.Amount,
		BalanceAfter: balance.Add(signed),
		Notes:        req.Notes,
		CreatedAt:    now,
	}
	if err := uow.TransactionRepository().Create(ctx, &txn); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	ls.auditor.Enqueue(loan.Id)

	ls.log.Info("loan_service", "ledger adjustment recorded", map[string]interface{}{
		"loan_id":  loan.Id.String(),
		"actor_id": actorId.String(),
		"type":     req.Type,
		"amount":   req.Amount.String(),
	})

	return transactionToResponse(&txn), nil
}

func (ls *loanService) ListLoans(ctx context.Context, userId uuid.UUID) ([]*dto.LoanResponse, error) {
	uow := ls.uowFactory.NewUnitOfWork(ctx)

	loans, err := uow.LoanRepository().FindAll(ctx,
		specification.OwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]*dto.LoanResponse, len(loans))
	for i, l := range loans {
		res[i] = loanToResponse(l)
	}
	return res, nil
}

func (ls *loanService) GetLoan(ctx context.Context, userId uuid.UUID, loanId uuid.UUID) (*dto.LoanResponse, error) {
	uow := ls.uowFactory.NewUnitOfWork(ctx)

	loan, err := uow.LoanRepository().FindOne(ctx, specification.ByID{ID: loanId})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if loan == nil {
		return nil, apperrors.ErrNotFound
	}
	if loan.UserId != userId {
		return nil, apperrors.ErrNotOwner
	}
	return loanToResponse(loan), nil
}

func (ls *loanService) GetTransactionsForLoan(ctx context.Context, userId uuid.UUID, loanId uuid.UUID) ([]*dto.TransactionResponse, error) {
	uow := ls.uowFactory.NewUnitOfWork(ctx)

	loan, err := uow.LoanRepository().FindOne(ctx, specification.ByID{ID: loanId})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if loan == nil {
		return nil, apperrors.ErrNotFound
	}
	if loan.UserId != userId {
		return nil, apperrors.ErrNotOwner
	}

	txns, err := uow.TransactionRepository().FindAll(ctx,
		specification.ByLoanID{LoanID: loanId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	res := make([]*dto.TransactionResponse, len(txns))
	for i, t := range txns {
		res[i] = transactionToResponse(t)
	}
	return res, nil
}

func (ls *loanService) GetTransaction(ctx context.Context, userId uuid.UUID, transactionId uuid.UUID) (*dto.TransactionResponse, error) {
	uow := ls.uowFactory.NewUnitOfWork(ctx)

	txn, err := uow.TransactionRepository().FindLast(ctx, specification.ByID{ID: transactionId})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if txn == nil {
		return nil, apperrors.ErrNotFound
	}
	if txn.UserId != userId {
		return nil, apperrors.ErrNotOwner
	}
	return transactionToResponse(txn), nil
}

// checkNoOtherOpenLoan enforces at most one approved or active loan per user
// at the moment a loan enters approved. Pending offers do not count.
func (ls *loanService) checkNoOtherOpenLoan(ctx context.Context, uow unitofwork.UnitOfWork, loan *entity.Loan) error {
	open, err := uow.LoanRepository().Count(ctx,
		specification.OwnedBy{UserID: loan.UserId},
		specification.ByStatuses{Statuses: []entity.LoanStatus{entity.LoanStatusApproved, entity.LoanStatusActive}},
		specification.ExcludingID{ID: loan.Id},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if open > 0 {
		return apperrors.ErrDuplicateActiveLoan
	}
	return nil
}

func (ls *loanService) loanOwner(ctx context.Context, loanId uuid.UUID) (uuid.UUID, error) {
	loan, err := ls.uowFactory.NewUnitOfWork(ctx).LoanRepository().FindOne(ctx, specification.ByID{ID: loanId})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if loan == nil {
		return uuid.Nil, apperrors.ErrNotFound
	}
	return loan.UserId, nil
}

// runningBalance reads the newest ledger row for the loan inside the current
// unit of work. No rows yet means zero.
func (ls *loanService) runningBalance(ctx context.Context, uow unitofwork.UnitOfWork, loanId uuid.UUID) (decimal.Decimal, error) {
	last, err := uow.TransactionRepository().FindLast(ctx, specification.ByLoanID{LoanID: loanId})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if last == nil {
		return decimal.Zero, nil
	}
	return last.BalanceAfter, nil
}

func (ls *loanService) publishEvent(ctx context.Context, event events.Event) {
	if ls.publisher == nil {
		return
	}
	if err := ls.publisher.Publish(ctx, event); err != nil {
		// Event delivery is best effort; the ledger write already committed.
		ls.log.Warn("loan_service", "event publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func statusEventType(status entity.LoanStatus) string {
	switch status {
	case entity.LoanStatusApproved:
		return events.TypeLoanApproved
	case entity.LoanStatusActive:
		return events.TypeLoanActivated
	case entity.LoanStatusCompleted:
		return events.TypeLoanCompleted
	case entity.LoanStatusRejected:
		return events.TypeLoanRejected
	case entity.LoanStatusDefaulted:
		return events.TypeLoanDefaulted
	default:
		return "LOAN_STATUS_CHANGED"
	}
}

func offerToResponse(o *offer.Offer) *dto.OfferResponse {
	return &dto.OfferResponse{
		Amount:         o.Amount,
		InterestRate:   o.InterestRate,
		TenureDays:     o.TenureDays,
		InterestAmount: o.InterestAmount,
		TotalRepayment: o.TotalRepayment,
		DailyInterest:  o.DailyInterest,
		DueDate:        o.DueDate,
	}
}

func loanToResponse(l *entity.Loan) *dto.LoanResponse {
	return &dto.LoanResponse{
		Id:             l.Id,
		UserId:         l.UserId,
		Amount:         l.Amount,
		InterestRate:   l.InterestRate,
		TenureDays:     l.TenureDays,
		InterestAmount: l.InterestAmount,
		TotalRepayment: l.TotalRepayment,
		Status:         string(l.Status),
		ApprovedBy:     l.ApprovedBy,
		ApprovedAt:     l.ApprovedAt,
		DisbursedAt:    l.DisbursedAt,
		DueDate:        l.DueDate,
		AiDecision:     l.AiDecision,
		AiConfidence:   l.AiConfidence,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func transactionToResponse(t *entity.Transaction) *dto.TransactionResponse {
	return &dto.TransactionResponse{
		Id:           t.Id,
		LoanId:       t.LoanId,
		Type:         string(t.Type),
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Notes:        t.Notes,
		CreatedAt:    t.CreatedAt,
	}
}
