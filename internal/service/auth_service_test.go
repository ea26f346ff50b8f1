package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitwiser/internal/auth"
	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
)

func setupAuthServer(t *testing.T) *AuthClient {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "splitwiser-auth-*")
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
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	path, handler := NewAuthServiceHandler(
		NewAuthService(authenticator, jwtManager, store, logger),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewAuthClient(http.DefaultClient, server.URL)
}

func withToken[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func TestRegister_Login_GetCurrentUser(t *testing.T) {
	client := setupAuthServer(t)
	ctx := context.Background()

	regResp, err := client.Register(ctx, connect.NewRequest(&RegisterRequest{
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Password:    "correct-horse",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if regResp.Msg.Token == "" || regResp.Msg.User.ID == "" {
		t.Fatalf("expected token and user, got %+v", regResp.Msg)
	}

	_, err = client.Register(ctx, connect.NewRequest(&RegisterRequest{
		Email:       "alice@example.com",
		DisplayName: "Alice again",
		Password:    "correct-horse",
	}))
	wantCode(t, err, connect.CodeAlreadyExists)

	loginResp, err := client.Login(ctx, connect.NewRequest(&LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	meResp, err := client.GetCurrentUser(ctx, withToken(loginResp.Msg.Token, &GetCurrentUserRequest{}))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if meResp.Msg.User.ID != regResp.Msg.User.ID || meResp.Msg.User.DisplayName != "Alice" {
		t.Errorf("unexpected user %+v", meResp.Msg.User)
	}
}

func TestAuthService_Errors(t *testing.T) {
	client := setupAuthServer(t)
	ctx := context.Background()

	_, err := client.Register(ctx, connect.NewRequest(&RegisterRequest{
		Email:       "bob@example.com",
		DisplayName: "Bob",
		Password:    "short",
	}))
	wantCode(t, err, connect.CodeInvalidArgument)

	_, err = client.Register(ctx, connect.NewRequest(&RegisterRequest{
		Email:       "not-an-email",
		DisplayName: "Bob",
		Password:    "long-enough",
	}))
	wantCode(t, err, connect.CodeInvalidArgument)

	_, err = client.Login(ctx, connect.NewRequest(&LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-pass",
	}))
	wantCode(t, err, connect.CodeUnauthenticated)

	_, err = client.GetCurrentUser(ctx, connect.NewRequest(&GetCurrentUserRequest{}))
	wantCode(t, err, connect.CodeUnauthenticated)

	_, err = client.GetCurrentUser(ctx, withToken("garbage", &GetCurrentUserRequest{}))
	wantCode(t, err, connect.CodeUnauthenticated)

	if _, err := client.Logout(ctx, connect.NewRequest(&LogoutRequest{})); err != nil {
		t.Errorf("Logout failed: %v", err)
	}
}
