package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// ============================================================
// AuthStore implementation — users, credentials, refresh tokens
// ============================================================

type userRow struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:          r.ID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		Status:      r.Status,
		CreatedAt:   parseDate(r.CreatedAt),
	}
}

func (c *Client) CreateUser(ctx context.Context, user *domain.User, cred *domain.AuthCredential) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateUser")
	defer span.End()

	userID := uuid.New().String()

	userData := map[string]any{
		"id":           userID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"status":       "active",
	}
	body, err := c.doPost(ctx, "users", userData)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	credData := map[string]any{
		"id":              uuid.New().String(),
		"user_id":         userID,
		"password_hash":   cred.PasswordHash,
		"failed_attempts": 0,
	}
	if _, err := c.doPost(ctx, "auth_credentials", credData); err != nil {
		// Roll the user back so a retry of registration can succeed.
		_ = c.doDelete(ctx, fmt.Sprintf("users?id=eq.%s", userID))
		return nil, fmt.Errorf("create auth credentials: %w", err)
	}

	rows, err := decodeRows[userRow](body, "user")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &domain.User{ID: userID, Email: user.Email, DisplayName: user.DisplayName, Status: "active"}, nil
	}
	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByEmail")
	defer span.End()

	path := fmt.Sprintf("users?email=eq.%s&limit=1", url.QueryEscape(email))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if empty(body) {
		return nil, nil // not found is not an error for auth lookup
	}

	rows, err := decodeRows[userRow](body, "users")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	user := rows[0].toDomain()
	return &user, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()

	path := fmt.Sprintf("users?id=eq.%s&limit=1", userID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}

	rows, err := decodeRows[userRow](body, "user")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	user := rows[0].toDomain()
	return &user, nil
}

// --- Credentials ---

type credentialRow struct {
	UserID         string  `json:"user_id"`
	PasswordHash   string  `json:"password_hash"`
	FailedAttempts int     `json:"failed_attempts"`
	LockedUntil    *string `json:"locked_until"`
}

func (c *Client) GetCredential(ctx context.Context, userID string) (*domain.AuthCredential, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCredential")
	defer span.End()

	path := fmt.Sprintf("auth_credentials?user_id=eq.%s&limit=1", userID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}

	rows, err := decodeRows[credentialRow](body, "auth_credentials")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}

	cred := &domain.AuthCredential{
		UserID:         rows[0].UserID,
		PasswordHash:   rows[0].PasswordHash,
		FailedAttempts: rows[0].FailedAttempts,
	}
	if rows[0].LockedUntil != nil {
		until := parseDate(*rows[0].LockedUntil)
		cred.LockedUntil = &until
	}
	return cred, nil
}

func (c *Client) UpdateCredential(ctx context.Context, userID string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCredential")
	defer span.End()

	_, err := c.doPatch(ctx, fmt.Sprintf("auth_credentials?user_id=eq.%s", userID), fields)
	return err
}

// --- Refresh tokens ---

type refreshTokenRow struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TokenHash string `json:"token_hash"`
	ExpiresAt string `json:"expires_at"`
	Revoked   bool   `json:"revoked"`
}

func (c *Client) StoreRefreshToken(ctx context.Context, token *domain.AuthRefreshToken) error {
	ctx, span := tracer.Start(ctx, "Supabase.StoreRefreshToken")
	defer span.End()

	data := map[string]any{
		"id":         uuid.New().String(),
		"user_id":    token.UserID,
		"token_hash": token.TokenHash,
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
		"revoked":    false,
	}
	_, err := c.doPost(ctx, "auth_refresh_tokens", data)
	return err
}

func (c *Client) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRefreshTokenByHash")
	defer span.End()

	path := fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s&revoked=eq.false&limit=1", tokenHash)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if empty(body) {
		return nil, nil
	}

	rows, err := decodeRows[refreshTokenRow](body, "auth_refresh_tokens")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &domain.AuthRefreshToken{
		ID:        rows[0].ID,
		UserID:    rows[0].UserID,
		TokenHash: rows[0].TokenHash,
		ExpiresAt: parseDate(rows[0].ExpiresAt),
		Revoked:   rows[0].Revoked,
	}, nil
}

func (c *Client) RevokeRefreshToken(ctx context.Context, tokenID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRefreshToken")
	defer span.End()

	_, err := c.doPatch(ctx, fmt.Sprintf("auth_refresh_tokens?id=eq.%s", tokenID), map[string]any{"revoked": true})
	return err
}

func (c *Client) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeUserRefreshTokens")
	defer span.End()

	path := fmt.Sprintf("auth_refresh_tokens?user_id=eq.%s&revoked=eq.false", userID)
	_, err := c.doPatch(ctx, path, map[string]any{"revoked": true})
	return err
}
