package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// ============================================================
// Sharing & community feed
// ============================================================

// newShareToken returns an opaque token and its sha256 hex hash. Only
// the hash is persisted, same scheme as refresh tokens.
func newShareToken() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, hashToken(token), nil
}

// CreateShareLink mints a public link for an owned trip. The returned
// link carries the raw token exactly once; only its hash is stored.
func (s *TripService) CreateShareLink(ctx context.Context, userID, tripID string) (*domain.ShareLink, string, error) {
	ctx, span := tracer.Start(ctx, "TripService.CreateShareLink")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return nil, "", err
	}

	token, hash, err := newShareToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate share token: %w", err)
	}

	expires := time.Now().Add(s.shareTTL)
	link, err := s.shares.CreateShareLink(ctx, &domain.ShareLink{
		TripID:    tripID,
		TokenHash: hash,
		ExpiresAt: &expires,
	})
	if err != nil {
		s.metrics.IncrExternalError("share_links")
		return nil, "", err
	}

	link.Token = token
	link.TokenHash = "" // never leak the stored hash
	s.logger.Info("share link created",
		zap.String("trip_id", tripID),
		zap.Time("expires_at", expires),
	)
	return link, fmt.Sprintf("%s/v1/shared/%s", s.shareBaseURL, token), nil
}

// RevokeShareLinks drops every share link for an owned trip.
func (s *TripService) RevokeShareLinks(ctx context.Context, userID, tripID string) error {
	ctx, span := tracer.Start(ctx, "TripService.RevokeShareLinks")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return err
	}
	return s.shares.DeleteShareLinksForTrip(ctx, tripID)
}

// GetSharedTrip resolves a share token to the public view of a trip.
// Expired or unknown tokens surface as not-found, never as forbidden,
// so the endpoint does not confirm which trips exist.
func (s *TripService) GetSharedTrip(ctx context.Context, token string) (*domain.SharedTrip, error) {
	ctx, span := tracer.Start(ctx, "TripService.GetSharedTrip")
	defer span.End()

	link, err := s.shares.GetShareLinkByHash(ctx, hashToken(token))
	if err != nil {
		return nil, &domain.ErrNotFound{Resource: "shared trip", ID: token}
	}
	if link.ExpiresAt != nil && time.Now().After(*link.ExpiresAt) {
		return nil, &domain.ErrNotFound{Resource: "shared trip", ID: token}
	}

	trip, err := s.store.GetTrip(ctx, link.TripID)
	if err != nil {
		return nil, err
	}
	sections, err := s.store.ListSections(ctx, link.TripID)
	if err != nil {
		return nil, err
	}

	// Strip owner-only fields from the public view.
	trip.UserID = ""
	trip.Notes = ""
	return &domain.SharedTrip{Trip: trip, Sections: sections}, nil
}

// GetFeed returns the community feed of public trips, cached briefly.
func (s *TripService) GetFeed(ctx context.Context) ([]domain.FeedItem, error) {
	ctx, span := tracer.Start(ctx, "TripService.GetFeed")
	defer span.End()

	if cached, ok := s.cache.Get("feed"); ok {
		if items, ok := cached.([]domain.FeedItem); ok {
			s.metrics.IncrCacheHit("feed")
			return items, nil
		}
	}
	s.metrics.IncrCacheMiss("feed")

	items, err := s.shares.ListPublicTrips(ctx, s.feedLimit)
	if err != nil {
		s.metrics.IncrExternalError("feed")
		return nil, err
	}
	s.cache.Set("feed", items)
	return items, nil
}

// SendShareInvite creates a fresh share link and mails it.
func (s *TripService) SendShareInvite(ctx context.Context, userID, tripID string, req *domain.ShareInviteRequest) error {
	ctx, span := tracer.Start(ctx, "TripService.SendShareInvite")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	if req.Email == "" {
		return &domain.ErrValidation{Field: "email", Message: "email is required"}
	}

	trip, err := s.getOwnedTrip(ctx, userID, tripID)
	if err != nil {
		return err
	}
	_, shareURL, err := s.CreateShareLink(ctx, userID, tripID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("You have been invited to view the trip %q to %s.\n\nOpen it here: %s\n",
		trip.Title, trip.Destination, shareURL)
	if req.Message != "" {
		body += "\n" + req.Message + "\n"
	}

	subject := fmt.Sprintf("Trip shared with you: %s", trip.Title)
	if err := s.mailer.Send(ctx, req.Email, subject, body); err != nil {
		s.metrics.IncrExternalError("mail")
		return &domain.ErrExternalService{Service: "mail", Err: err}
	}
	return nil
}
