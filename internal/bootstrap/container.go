package bootstrap

import (
	"context"
	"log"

	"ai-lending-be/internal/config"
	"ai-lending-be/internal/constant"
	"ai-lending-be/internal/controller"
	"ai-lending-be/internal/handler"
	"ai-lending-be/internal/pkg/logger"
	"ai-lending-be/internal/repository/implementation"
	"ai-lending-be/internal/repository/memory"
	"ai-lending-be/internal/repository/unitofwork"
	"ai-lending-be/internal/service"
	"ai-lending-be/internal/websocket"
	"ai-lending-be/pkg/agent/openai"
	"ai-lending-be/pkg/offer"

	pktNats "ai-lending-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController        controller.IChatController
	LoanController        controller.ILoanController
	TransactionController controller.ITransactionController

	// Background Services (Exposed for main.go to run)
	LedgerAuditService service.ILedgerAuditService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus (in-process, drives the ledger audit worker)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// A typed nil inside the interface would defeat the services' nil checks.
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Domain Components
	calculator := offer.NewCalculator(
		mustDecimal(cfg.Loan.MinAmount),
		mustDecimal(cfg.Loan.MaxAmount),
		mustDecimal(cfg.Loan.DefaultRate),
		cfg.Loan.DefaultTenureDays,
	)
	offerCache := memory.NewOfferCache()
	turnMutex := memory.NewKeyedMutex()
	ledgerMutex := memory.NewKeyedMutex()

	// Agent Gateway
	agentProvider := openai.NewProvider(
		cfg.Agent.BaseURL,
		cfg.Agent.APIKey,
		cfg.Agent.Model,
		cfg.Agent.AssistantID,
		constant.LucyInstructions,
		sysLogger,
	)
	if _, err := agentProvider.EnsureAssistant(context.Background()); err != nil {
		log.Printf("[WARN] Failed to ensure assistant identity: %v", err)
	}

	// 4. Services
	auditService := service.NewLedgerAuditService(pubSub, uowFactory, sysLogger)

	loanService := service.NewLoanService(
		uowFactory,
		calculator,
		offerCache,
		ledgerMutex,
		auditService,
		eventPublisher,
		sysLogger,
	)

	chatService := service.NewChatService(
		uowFactory,
		agentProvider,
		loanService,
		turnMutex,
		eventPublisher,
		cfg.Agent.GatewayTimeout,
		sysLogger,
	)

	// 4.5 Notification System Infrastructure
	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, natsSub, wsHub, wsLogger) // Hub implements NotificationDelivery

	// Start Service (Worker)
	if natsSub != nil {
		go notifService.Start()
	}

	notifHandler := handler.NewNotificationHandler(notifService, wsHub, wsLogger)

	// 5. Controllers
	return &Container{
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,

		ChatController:        controller.NewChatController(chatService),
		LoanController:        controller.NewLoanController(loanService),
		TransactionController: controller.NewTransactionController(loanService),

		LedgerAuditService: auditService,
	}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatalf("[FATAL] Invalid decimal in loan config: %q", s)
	}
	return d
}
