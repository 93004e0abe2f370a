// Package port defines the interfaces between the service layer and
// the outside world. Services depend on these, never on concrete infra.
package port

import (
	"context"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// TripStore persists trips, their itinerary sections and expenses.
type TripStore interface {
	CreateTrip(ctx context.Context, trip *domain.Trip) (*domain.Trip, error)
	GetTrip(ctx context.Context, tripID string) (*domain.Trip, error)
	ListTrips(ctx context.Context, userID string) ([]domain.Trip, error)
	UpdateTrip(ctx context.Context, tripID string, fields map[string]any) (*domain.Trip, error)
	DeleteTrip(ctx context.Context, tripID string) error

	// ListTripsEndedBefore returns non-completed trips whose end date is
	// in the past; the maintenance job marks them completed.
	ListTripsEndedBefore(ctx context.Context, isoDate string) ([]domain.Trip, error)

	CreateSection(ctx context.Context, section *domain.Section) (*domain.Section, error)
	ListSections(ctx context.Context, tripID string) ([]domain.Section, error)
	UpdateSection(ctx context.Context, sectionID string, fields map[string]any) (*domain.Section, error)
	DeleteSection(ctx context.Context, sectionID string) error
	GetSection(ctx context.Context, sectionID string) (*domain.Section, error)

	CreateExpense(ctx context.Context, expense *domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, tripID string) ([]domain.Expense, error)
	DeleteExpense(ctx context.Context, expenseID string) error
	GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error)
	GetCategory(ctx context.Context, categoryID string) (*domain.ExpenseCategory, error)
}

// CatalogStore reads the curated city/activity catalog.
type CatalogStore interface {
	ListCities(ctx context.Context) ([]domain.City, error)
	GetCity(ctx context.Context, cityID string) (*domain.City, error)
	ListCityActivities(ctx context.Context, cityID string) ([]domain.CatalogActivity, error)
}

// ShareStore persists share links and serves the public feed.
type ShareStore interface {
	CreateShareLink(ctx context.Context, link *domain.ShareLink) (*domain.ShareLink, error)
	GetShareLinkByHash(ctx context.Context, tokenHash string) (*domain.ShareLink, error)
	DeleteShareLinksForTrip(ctx context.Context, tripID string) error
	DeleteExpiredShareLinks(ctx context.Context, isoTimestamp string) (int, error)
	ListPublicTrips(ctx context.Context, limit int) ([]domain.FeedItem, error)
}

// AuthStore persists users, credentials and refresh tokens.
type AuthStore interface {
	CreateUser(ctx context.Context, user *domain.User, cred *domain.AuthCredential) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetCredential(ctx context.Context, userID string) (*domain.AuthCredential, error)
	UpdateCredential(ctx context.Context, userID string, fields map[string]any) error

	StoreRefreshToken(ctx context.Context, token *domain.AuthRefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// CompletionCaller invokes the remote completion engine.
type CompletionCaller interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error)
}

// Cache is a TTL cache for derived or slow-changing reads.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Clear()
}

// Mailer sends outbound notification mail (share invites).
type Mailer interface {
	Send(ctx context.Context, to, subject, textBody string) error
}
