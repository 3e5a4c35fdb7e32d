package service

import (
	"context"
	"encoding/json"

	"ai-lending-be/internal/pkg/logger"
	"ai-lending-be/internal/repository/specification"
	"ai-lending-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ledgerAuditTopic = "ledger.audit"

// ILedgerAuditService re-derives a loan's running balance from its full
// transaction history after every ledger append and logs any drift between
// the stored balance_after chain and the recomputed sum.
type ILedgerAuditService interface {
	Enqueue(loanId uuid.UUID)
	Consume(ctx context.Context) error
}

type ledgerAuditPayload struct {
	LoanId uuid.UUID `json:"loan_id"`
}

type ledgerAuditService struct {
	pubSub     *gochannel.GoChannel
	uowFactory unitofwork.RepositoryFactory
	log        logger.ILogger
}

func NewLedgerAuditService(
	pubSub *gochannel.GoChannel,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) ILedgerAuditService {
	return &ledgerAuditService{
		pubSub:     pubSub,
		uowFactory: uowFactory,
		log:        log,
	}
}

// Enqueue is fire and forget; an audit that never runs costs nothing but a
// missed warning.
func (as *ledgerAuditService) Enqueue(loanId uuid.UUID) {
	payload, err := json.Marshal(ledgerAuditPayload{LoanId: loanId})
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := as.pubSub.Publish(ledgerAuditTopic, msg); err != nil {
		as.log.Warn("ledger_audit", "failed to enqueue audit", map[string]interface{}{
			"loan_id": loanId.String(),
			"error":   err.Error(),
		})
	}
}

func (as *ledgerAuditService) Consume(ctx context.Context) error {
	messages, err := as.pubSub.Subscribe(ctx, ledgerAuditTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			as.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (as *ledgerAuditService) processMessage(ctx context.Context, msg *message.Message) {
	var payload ledgerAuditPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		as.log.Warn("ledger_audit", "unreadable audit message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	uow := as.uowFactory.NewUnitOfWork(ctx)
	txns, err := uow.TransactionRepository().FindAll(ctx,
		specification.ByLoanID{LoanID: payload.LoanId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		as.log.Warn("ledger_audit", "failed to load transactions", map[string]interface{}{
			"loan_id": payload.LoanId.String(),
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}

	running := decimal.Zero
	for _, t := range txns {
		signed := t.Amount.Mul(t.Type.Sign())
		running = running.Add(signed)
		if !t.BalanceAfter.Equal(running) {
			as.log.Error("ledger_audit", "running balance drift detected", map[string]interface{}{
				"loan_id":        payload.LoanId.String(),
				"transaction_id": t.Id.String(),
				"stored":         t.BalanceAfter.String(),
				"recomputed":     running.String(),
			})
			// Keep auditing from the stored value so one drift does not
			// cascade into a warning per row.
			running = t.BalanceAfter
		}
	}

	msg.Ack()
}
