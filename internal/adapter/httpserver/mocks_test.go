package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/config"
	"github.com/jonboulle/clockwork"
)

const testAPIKey = "test-ingest-key-0123456789"

// --- Mock implementations ---

type mockEventService struct {
	startFn func(ctx context.Context, scopeID string, opts domain.EventOptions) (domain.EventInfo, error)
	stopFn  func(scopeID string) error
	getFn   func(scopeID string) (domain.EventInfo, error)
	events  []domain.EventInfo
}

func (m *mockEventService) StartEvent(ctx context.Context, scopeID string, opts domain.EventOptions) (domain.EventInfo, error) {
	if m.startFn != nil {
		return m.startFn(ctx, scopeID, opts)
	}
	return domain.EventInfo{ScopeID: scopeID, State: "running", Amount: opts.Amount}, nil
}

func (m *mockEventService) StopEvent(scopeID string) error {
	if m.stopFn != nil {
		return m.stopFn(scopeID)
	}
	return nil
}

func (m *mockEventService) GetEvent(scopeID string) (domain.EventInfo, error) {
	if m.getFn != nil {
		return m.getFn(scopeID)
	}
	return domain.EventInfo{}, domain.ErrEventNotFound
}

func (m *mockEventService) ListEvents() []domain.EventInfo {
	return m.events
}

type mockPublisher struct {
	reactions []domain.ReactionAdded
	deletions []domain.MessageDeleted
	err       error
}

func (m *mockPublisher) PublishReaction(_ context.Context, r domain.ReactionAdded) error {
	if m.err != nil {
		return m.err
	}
	m.reactions = append(m.reactions, r)
	return nil
}

func (m *mockPublisher) PublishMessageDeleted(_ context.Context, d domain.MessageDeleted) error {
	if m.err != nil {
		return m.err
	}
	m.deletions = append(m.deletions, d)
	return nil
}

type mockBalances struct {
	balance    int64
	history    []domain.Transaction
	err        error
	historyArg int
}

func (m *mockBalances) Balance(context.Context, string) (int64, error) {
	return m.balance, m.err
}

func (m *mockBalances) History(_ context.Context, _ string, limit int) ([]domain.Transaction, error) {
	m.historyArg = limit
	return m.history, m.err
}

var errBackendDown = errors.New("backend down")

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:          "development",
		Port:            "0",
		InstanceID:      "test-instance",
		IngestAPIKey:    testAPIKey,
		IngestRateLimit: 1000,
		IngestRateBurst: 1000,
	}
}

func newTestServer(t *testing.T, opts ...func(*Dependencies)) *Server {
	t.Helper()
	deps := Dependencies{
		Events:    &mockEventService{},
		Publisher: &mockPublisher{},
		Balances:  &mockBalances{},
		Clock:     clockwork.NewFakeClock(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewServer(testConfig(), deps)
}

func withEvents(events eventService) func(*Dependencies) {
	return func(d *Dependencies) { d.Events = events }
}

func withPublisher(p notificationPublisher) func(*Dependencies) {
	return func(d *Dependencies) { d.Publisher = p }
}

func withBalances(b balanceReader) func(*Dependencies) {
	return func(d *Dependencies) { d.Balances = b }
}

func withLedgerState(state string) func(*Dependencies) {
	return func(d *Dependencies) { d.LedgerState = func() string { return state } }
}

func withHealthChecks(checks ...HealthCheck) func(*Dependencies) {
	return func(d *Dependencies) { d.HealthChecks = checks }
}

func withWebsocketHandler(h http.Handler) func(*Dependencies) {
	return func(d *Dependencies) { d.WebsocketHandler = h }
}

// do sends a request through the full middleware stack.
func do(srv *Server, method, target, body string, authorized bool) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
