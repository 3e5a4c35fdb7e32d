package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-lending-be/internal/model"
	"ai-lending-be/internal/pkg/logger"
	"ai-lending-be/internal/repository/contract"
	"ai-lending-be/pkg/events"
	pkgnats "ai-lending-be/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationDelivery is how real-time pushes leave the process, typically
// the websocket hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
	Broadcast(notification model.Notification)
}

// notificationTemplate maps an event type to its user-facing rendering.
// Placeholders like {amount} are filled from the event payload.
type notificationTemplate struct {
	Title    string
	Template string
}

var notificationTemplates = map[string]notificationTemplate{
	events.TypeLoanCreated:         {"Loan Offer Prepared", "A loan offer of KES {amount} is waiting for your decision."},
	events.TypeLoanApproved:        {"Loan Approved", "Your loan of KES {amount} has been approved."},
	events.TypeLoanActivated:       {"Loan Disbursed", "KES {amount} has been disbursed to you."},
	events.TypeLoanCompleted:       {"Loan Repaid", "Your loan of KES {amount} is fully repaid. Well done!"},
	events.TypeLoanRejected:        {"Loan Offer Closed", "Your loan offer of KES {amount} was not taken up."},
	events.TypeLoanDefaulted:       {"Loan In Default", "Your loan of KES {amount} has been marked as defaulted."},
	events.TypeRepaymentRecorded:   {"Repayment Received", "We received your repayment of KES {amount}. Remaining balance: KES {balance}."},
	events.TypeOnboardingCompleted: {"Welcome Aboard", "Your business profile for {business_name} is complete."},
}

type NotificationService struct {
	repo       contract.NotificationRepository
	subscriber *pkgnats.Subscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(repo contract.NotificationRepository, sub *pkgnats.Subscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("events.>", "notif-service-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	tmpl, ok := notificationTemplates[typeCode]
	if !ok {
		// Unknown events are not an error; they are just not user-facing.
		return nil
	}

	payload := event.Payload()
	uidStr, _ := payload["user_id"].(string)
	userID, err := uuid.Parse(uidStr)
	if err != nil {
		s.logger.Warn("NotificationService", "Event without a valid user_id, dropping", map[string]interface{}{
			"type": typeCode,
		})
		return nil
	}

	notif := s.buildNotification(userID, typeCode, tmpl, payload)

	if err := s.repo.CreateNotification(ctx, &notif); err != nil {
		s.logger.Error("NotificationService", "Failed to save notification", map[string]interface{}{
			"type":  typeCode,
			"error": err.Error(),
		})
		return err // NATS redelivers
	}

	if s.delivery != nil {
		s.delivery.Send(userID, notif)
	}
	return nil
}

func (s *NotificationService) buildNotification(userID uuid.UUID, typeCode string, tmpl notificationTemplate, payload map[string]interface{}) model.Notification {
	msg := tmpl.Template
	for k, v := range payload {
		placeholder := fmt.Sprintf("{%s}", k)
		msg = strings.ReplaceAll(msg, placeholder, fmt.Sprintf("%v", v))
	}

	metaJSON, _ := json.Marshal(payload)

	return model.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		TypeCode:  typeCode,
		Title:     tmpl.Title,
		Message:   msg,
		Metadata:  datatypes.JSON(metaJSON),
		CreatedAt: time.Now(),
		IsRead:    false,
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	return s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}
