package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/settlement"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
	"github.com/mmynk/splitwiser/internal/storage/sqlstore"
)

const (
	testUserHeader  = "X-Test-User"
	testAdminHeader = "X-Test-Admin"
)

// testAuthInterceptor puts the user named in the test header into the
// context, defaulting to alice.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			userID := req.Header().Get(testUserHeader)
			if userID == "" {
				userID = "alice"
			}
			ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
			ctx = context.WithValue(ctx, middleware.AdminKey, req.Header().Get(testAdminHeader) == "true")
			return next(ctx, req)
		}
	}
}

// recordingPublisher remembers the topics it was asked to publish on.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

type testServer struct {
	groups *GroupClient
	ledger *LedgerClient
	store  *sqlstore.Store
	events *recordingPublisher
}

// setupTestServer starts the group and ledger services over a temp SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "splitwiser-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := &recordingPublisher{}
	applier := settlement.NewApplier(store, publisher, logger)

	authInterceptor := connect.WithInterceptors(testAuthInterceptor())
	groupPath, groupHandler := NewGroupServiceHandler(NewGroupService(store, logger), authInterceptor)
	ledgerPath, ledgerHandler := NewLedgerServiceHandler(NewLedgerService(store, applier, publisher, logger), authInterceptor)

	mux := http.NewServeMux()
	mux.Handle(groupPath, groupHandler)
	mux.Handle(ledgerPath, ledgerHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{
		groups: NewGroupClient(http.DefaultClient, server.URL),
		ledger: NewLedgerClient(http.DefaultClient, server.URL),
		store:  store,
		events: publisher,
	}
}

// as builds a request made by userID.
func as[T any](userID string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(testUserHeader, userID)
	return req
}

// asAdmin builds a request made by userID with admin rights.
func asAdmin[T any](userID string, msg *T) *connect.Request[T] {
	req := as(userID, msg)
	req.Header().Set(testAdminHeader, "true")
	return req
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("expected %v, got %v (%v)", code, got, err)
	}
}
