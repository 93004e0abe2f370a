package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type fakeAuthStore struct {
	users  map[string]*domain.User             // by id
	emails map[string]*domain.User             // by email
	creds  map[string]*domain.AuthCredential   // by user id
	tokens map[string]*domain.AuthRefreshToken // by token hash

	nextID int
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		users:  map[string]*domain.User{},
		emails: map[string]*domain.User{},
		creds:  map[string]*domain.AuthCredential{},
		tokens: map[string]*domain.AuthRefreshToken{},
	}
}

func (f *fakeAuthStore) CreateUser(_ context.Context, user *domain.User, cred *domain.AuthCredential) (*domain.User, error) {
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.users[user.ID] = user
	f.emails[user.Email] = user
	cred.UserID = user.ID
	f.creds[user.ID] = cred
	return user, nil
}

func (f *fakeAuthStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.emails[email], nil
}

func (f *fakeAuthStore) GetUser(_ context.Context, userID string) (*domain.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return user, nil
}

func (f *fakeAuthStore) GetCredential(_ context.Context, userID string) (*domain.AuthCredential, error) {
	cred, ok := f.creds[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	return cred, nil
}

func (f *fakeAuthStore) UpdateCredential(_ context.Context, userID string, fields map[string]any) error {
	cred, ok := f.creds[userID]
	if !ok {
		return &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	if v, ok := fields["failed_attempts"].(int); ok {
		cred.FailedAttempts = v
	}
	if v, ok := fields["locked_until"]; ok {
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339, s); err == nil {
				cred.LockedUntil = &ts
			}
		} else {
			cred.LockedUntil = nil
		}
	}
	return nil
}

func (f *fakeAuthStore) StoreRefreshToken(_ context.Context, token *domain.AuthRefreshToken) error {
	f.nextID++
	token.ID = fmt.Sprintf("token-%d", f.nextID)
	f.tokens[token.TokenHash] = token
	return nil
}

func (f *fakeAuthStore) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	token, ok := f.tokens[tokenHash]
	if !ok || token.Revoked {
		return nil, nil
	}
	return token, nil
}

func (f *fakeAuthStore) RevokeRefreshToken(_ context.Context, tokenID string) error {
	for _, token := range f.tokens {
		if token.ID == tokenID {
			token.Revoked = true
		}
	}
	return nil
}

func (f *fakeAuthStore) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	for _, token := range f.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func newAuthService(store *fakeAuthStore) *service.AuthService {
	return service.NewAuthService(store, "test-secret", 15*time.Minute, 168*time.Hour, zap.NewNop())
}

func register(t *testing.T, svc *service.AuthService) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:       "ana@example.com",
		DisplayName: "Ana",
		Password:    "correct horse",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return user
}

// --- Tests ---

func TestRegister_Success(t *testing.T) {
	store := newFakeAuthStore()
	svc := newAuthService(store)

	user, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:       "  Ana@Example.COM ",
		DisplayName: "Ana",
		Password:    "correct horse",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if user.Email != "ana@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	cred := store.creds[user.ID]
	if cred == nil || cred.PasswordHash == "correct horse" {
		t.Error("expected a hashed password to be stored")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newAuthService(newFakeAuthStore())
	register(t, svc)

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:       "ana@example.com",
		DisplayName: "Ana Again",
		Password:    "another pass",
	})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newAuthService(newFakeAuthStore())

	cases := []struct {
		name string
		req  domain.RegisterRequest
	}{
		{"bad email", domain.RegisterRequest{Email: "not-an-email", DisplayName: "x", Password: "longenough"}},
		{"missing display name", domain.RegisterRequest{Email: "a@b.com", Password: "longenough"}},
		{"short password", domain.RegisterRequest{Email: "a@b.com", DisplayName: "x", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), &tc.req)
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLogin_IssuesValidTokens(t *testing.T) {
	svc := newAuthService(newFakeAuthStore())
	user := register(t, svc)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("expected valid access token, got %v", err)
	}
	if claims.Sub != user.ID {
		t.Errorf("expected subject %q, got %q", user.ID, claims.Sub)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newAuthService(newFakeAuthStore())
	register(t, svc)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "wrong",
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestLogin_LockoutAfterFailedAttempts(t *testing.T) {
	store := newFakeAuthStore()
	svc := newAuthService(store)
	register(t, svc)

	for i := 0; i < 5; i++ {
		_, err := svc.Login(context.Background(), &domain.LoginRequest{
			Email:    "ana@example.com",
			Password: "wrong",
		})
		if err == nil {
			t.Fatal("expected login failure")
		}
	}

	// Correct password is rejected while locked.
	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "correct horse",
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized while locked, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc := newAuthService(newFakeAuthStore())
	register(t, svc)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("expected refresh to succeed, got %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected a rotated refresh token")
	}

	// The spent token must not work twice.
	_, err = svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized for reused token, got %v", err)
	}
}

func TestLogout_RevokesRefreshTokens(t *testing.T) {
	svc := newAuthService(newFakeAuthStore())
	user := register(t, svc)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	_, err = svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}

func TestValidateAccessToken_RejectsGarbage(t *testing.T) {
	svc := newAuthService(newFakeAuthStore())

	_, err := svc.ValidateAccessToken("not-a-jwt")
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}
