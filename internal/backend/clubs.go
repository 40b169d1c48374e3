package backend

import (
	"context"
	"net/url"
	"strings"

	"nightlife-storefront/internal/models"
)

func (c *Client) Clubs(ctx context.Context) ([]models.Club, error) {
	raw, err := c.get(ctx, "/clubs", "/clubs", nil)
	if err != nil {
		return nil, err
	}
	return NormalizeClubs(raw), nil
}

// FilterClubs queries GET /clubs/filter. An empty filter lists every club.
func (c *Client) FilterClubs(ctx context.Context, f models.ClubFilter) ([]models.Club, error) {
	if f.IsEmpty() {
		return c.Clubs(ctx)
	}
	q := url.Values{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(k, v)
		}
	}
	set("q", f.Query)
	set("city", f.City)
	set("musicType", f.MusicType)
	set("day", f.Day)

	raw, err := c.get(ctx, "/clubs/filter", "/clubs/filter", q)
	if err != nil {
		return nil, err
	}
	return NormalizeClubs(raw), nil
}

func (c *Client) Club(ctx context.Context, id string) (*models.Club, error) {
	raw, err := c.get(ctx, "/clubs/:id", "/clubs/"+escape(id), nil)
	if err != nil {
		return nil, err
	}
	club := NormalizeClub(unwrap(raw, "club", "data"))
	if club.ID == "" {
		return nil, models.ErrNotFound
	}
	return &club, nil
}

func (c *Client) ClubEvents(ctx context.Context, clubID string) ([]models.Event, error) {
	raw, err := c.get(ctx, "/events/club/:id", "/events/club/"+escape(clubID), nil)
	if err != nil {
		return nil, err
	}
	return NormalizeEvents(raw), nil
}

func (c *Client) ClubTickets(ctx context.Context, clubID string) ([]models.Ticket, error) {
	raw, err := c.get(ctx, "/tickets/club/:id", "/tickets/club/"+escape(clubID), nil)
	if err != nil {
		return nil, err
	}
	return NormalizeTickets(raw), nil
}

// TicketCalendar lists the dates a club sells tickets for.
func (c *Client) TicketCalendar(ctx context.Context, clubID string) ([]models.CalendarDay, error) {
	raw, err := c.get(ctx, "/tickets/calendar/:id", "/tickets/calendar/"+escape(clubID), nil)
	if err != nil {
		return nil, err
	}
	return NormalizeCalendar(raw), nil
}

func (c *Client) ClubMenu(ctx context.Context, clubID string) ([]models.MenuItem, error) {
	raw, err := c.get(ctx, "/menu/club/:id", "/menu/club/"+escape(clubID), nil)
	if err != nil {
		return nil, err
	}
	return NormalizeMenu(raw), nil
}

// AvailableTickets fetches the per-date availability snapshot of a club.
func (c *Client) AvailableTickets(ctx context.Context, clubID, date string) (*models.AvailableTickets, error) {
	q := url.Values{"date": {date}}
	raw, err := c.get(ctx, "/tickets/club/:id/available", "/tickets/club/"+escape(clubID)+"/available", q)
	if err != nil {
		return nil, err
	}
	return NormalizeAvailableTickets(raw, clubID, date), nil
}

func (c *Client) Ads(ctx context.Context) ([]models.Ad, error) {
	raw, err := c.get(ctx, "/ads", "/ads", nil)
	if err != nil {
		return nil, err
	}
	return NormalizeAds(raw), nil
}
