package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-lending-be/internal/model"
	"ai-lending-be/internal/repository/memory"
	"ai-lending-be/internal/repository/unitofwork"
	"ai-lending-be/pkg/agent"
	"ai-lending-be/pkg/events"
	"ai-lending-be/pkg/offer"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database. A single connection keeps
// every unit of work on the same sqlite handle.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.ConversationThread{},
		&model.Message{},
		&model.Loan{},
		&model.Transaction{},
		&model.CustomerProfile{},
		&model.Notification{},
	))
	return db
}

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

type recordingAuditor struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (a *recordingAuditor) Enqueue(loanId uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids = append(a.ids, loanId)
}

func (a *recordingAuditor) Consume(ctx context.Context) error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type loanFixture struct {
	svc       ILoanService
	db        *gorm.DB
	auditor   *recordingAuditor
	publisher *recordingPublisher
}

func newLoanFixture(t *testing.T) *loanFixture {
	t.Helper()

	db := newTestDB(t)
	auditor := &recordingAuditor{}
	publisher := &recordingPublisher{}

	svc := NewLoanService(
		unitofwork.NewRepositoryFactory(db),
		offer.NewCalculator(
			decimal.NewFromInt(1000),
			decimal.NewFromInt(50000),
			decimal.NewFromInt(15),
			30,
		),
		memory.NewOfferCache(),
		memory.NewKeyedMutex(),
		auditor,
		publisher,
		noopLogger{},
	)

	return &loanFixture{svc: svc, db: db, auditor: auditor, publisher: publisher}
}

// stubProvider is a scriptable agent gateway.
type stubProvider struct {
	mu            sync.Mutex
	turns         []*agent.Turn
	converseErr   error
	createErr     error
	threadCounter int
	utterances    []string

	// onCreateThread runs before CreateThread returns; lets a test commit a
	// competing thread row mid-flight.
	onCreateThread func()
}

func (s *stubProvider) EnsureAssistant(ctx context.Context) (string, error) {
	return "asst_stub", nil
}

func (s *stubProvider) CreateThread(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	if s.onCreateThread != nil {
		s.onCreateThread()
	}
	s.threadCounter++
	return "thr_stub_" + uuid.NewString(), nil
}

func (s *stubProvider) Converse(ctx context.Context, threadHandle, utterance string) (*agent.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utterances = append(s.utterances, utterance)
	if s.converseErr != nil {
		return nil, s.converseErr
	}
	if len(s.turns) == 0 {
		return &agent.Turn{Reply: "Noted."}, nil
	}
	turn := s.turns[0]
	s.turns = s.turns[1:]
	return turn, nil
}

type chatFixture struct {
	svc       IChatService
	loans     ILoanService
	provider  *stubProvider
	publisher *recordingPublisher
	db        *gorm.DB
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	lf := newLoanFixture(t)
	provider := &stubProvider{}

	svc := NewChatService(
		unitofwork.NewRepositoryFactory(lf.db),
		provider,
		lf.svc,
		memory.NewKeyedMutex(),
		lf.publisher,
		5*time.Second,
		noopLogger{},
	)

	return &chatFixture{svc: svc, loans: lf.svc, provider: provider, publisher: lf.publisher, db: lf.db}
}
