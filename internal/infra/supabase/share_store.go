package supabase

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// ============================================================
// ShareStore implementation — trip_share_links + public feed
// ============================================================

type shareLinkRow struct {
	ID        string  `json:"id"`
	TripID    string  `json:"trip_id"`
	TokenHash string  `json:"token_hash"`
	ExpiresAt *string `json:"expires_at"`
	CreatedAt string  `json:"created_at"`
}

func (r shareLinkRow) toDomain() domain.ShareLink {
	link := domain.ShareLink{
		ID:        r.ID,
		TripID:    r.TripID,
		TokenHash: r.TokenHash,
		CreatedAt: parseDate(r.CreatedAt),
	}
	if r.ExpiresAt != nil {
		exp := parseDate(*r.ExpiresAt)
		link.ExpiresAt = &exp
	}
	return link
}

func (c *Client) CreateShareLink(ctx context.Context, link *domain.ShareLink) (*domain.ShareLink, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateShareLink")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", link.TripID))

	data := map[string]any{
		"id":         uuid.NewString(),
		"trip_id":    link.TripID,
		"token_hash": link.TokenHash,
	}
	if link.ExpiresAt != nil {
		data["expires_at"] = link.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	body, err := c.doPost(ctx, "trip_share_links", data)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trip_share_links", Err: err}
	}

	rows, err := decodeRows[shareLinkRow](body, "share link")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase returned no representation for created share link")
	}
	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) GetShareLinkByHash(ctx context.Context, tokenHash string) (*domain.ShareLink, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetShareLinkByHash")
	defer span.End()

	path := fmt.Sprintf("trip_share_links?token_hash=eq.%s&limit=1", tokenHash)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trip_share_links", Err: err}
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "share_link", ID: tokenHash}
	}

	rows, err := decodeRows[shareLinkRow](body, "share link")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "share_link", ID: tokenHash}
	}
	link := rows[0].toDomain()
	return &link, nil
}

func (c *Client) DeleteShareLinksForTrip(ctx context.Context, tripID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteShareLinksForTrip")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	if err := c.doDelete(ctx, fmt.Sprintf("trip_share_links?trip_id=eq.%s", tripID)); err != nil {
		return &domain.ErrExternalService{Service: "supabase/trip_share_links", Err: err}
	}
	return nil
}

// DeleteExpiredShareLinks purges links past their expiry. Returns the
// number of rows that matched before deletion (best effort).
func (c *Client) DeleteExpiredShareLinks(ctx context.Context, isoTimestamp string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteExpiredShareLinks")
	defer span.End()

	path := fmt.Sprintf("trip_share_links?expires_at=lt.%s&select=id", isoTimestamp)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return 0, &domain.ErrExternalService{Service: "supabase/trip_share_links", Err: err}
	}
	if empty(body) {
		return 0, nil
	}
	rows, err := decodeRows[shareLinkRow](body, "expired share links")
	if err != nil {
		return 0, err
	}

	if err := c.doDelete(ctx, fmt.Sprintf("trip_share_links?expires_at=lt.%s", isoTimestamp)); err != nil {
		return 0, &domain.ErrExternalService{Service: "supabase/trip_share_links", Err: err}
	}
	return len(rows), nil
}

// feedRow joins trips with the owner's display name and a section count.
type feedRow struct {
	tripRow
	Owner *struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Sections []struct {
		Count int `json:"count"`
	} `json:"sections"`
}

// ListPublicTrips serves the community feed: public trips, newest first.
func (c *Client) ListPublicTrips(ctx context.Context, limit int) ([]domain.FeedItem, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPublicTrips")
	defer span.End()

	path := fmt.Sprintf(
		"trips?is_public=eq.true&select=*,owner:users(display_name),sections:trip_sections(count)&order=created_at.desc&limit=%d",
		limit,
	)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trips", Err: err}
	}
	if empty(body) {
		return []domain.FeedItem{}, nil
	}

	rows, err := decodeRows[feedRow](body, "public trips")
	if err != nil {
		return nil, err
	}
	items := make([]domain.FeedItem, 0, len(rows))
	for _, r := range rows {
		trip := r.tripRow.toDomain()
		item := domain.FeedItem{Trip: &trip}
		if r.Owner != nil {
			item.OwnerName = r.Owner.DisplayName
		}
		if len(r.Sections) > 0 {
			item.SectionCount = r.Sections[0].Count
		}
		items = append(items, item)
	}
	return items, nil
}
