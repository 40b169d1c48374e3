package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"nightlife-storefront/internal/availability"
	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/middleware"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/search"
	"nightlife-storefront/internal/validation"
	"nightlife-storefront/web/templates/pages"
)

// PublicHandler serves the club listing, club details and availability.
type PublicHandler struct {
	clock clock.Clock
}

func NewPublicHandler(clk clock.Clock) *PublicHandler {
	if clk == nil {
		clk = clock.WallClock
	}
	return &PublicHandler{clock: clk}
}

// HomePage lists every club along with the ad banners.
func (h *PublicHandler) HomePage(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	ctx := r.Context()

	var (
		data listing
		g    errgroup.Group
	)
	g.Go(func() error {
		data.clubs, data.err = st.Search.Search(ctx, models.ClubFilter{})
		return nil
	})
	g.Go(func() error {
		ads, err := st.API.Ads(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).
				Str(logger.KeyTag, "handlers.HomePage").
				Msg("failed to load ads")
		}
		data.ads = ads
		return nil
	})
	_ = g.Wait()

	render(w, r, http.StatusOK, pages.HomePage(data.build(st.Search.RetryAt(), h.clock.Now(), models.ClubFilter{})))
}

// SearchClubs filters clubs by query, city, music type and day. htmx
// requests get the results fragment only.
func (h *PublicHandler) SearchClubs(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}

	q := r.URL.Query()
	filter := models.ClubFilter{
		Query:     strings.TrimSpace(q.Get("q")),
		City:      strings.TrimSpace(q.Get("city")),
		MusicType: strings.TrimSpace(q.Get("musicType")),
		Day:       strings.TrimSpace(q.Get("day")),
	}

	var data listing
	data.clubs, data.err = st.Search.Search(r.Context(), filter)
	if errors.Is(data.err, context.Canceled) {
		return
	}
	d := data.build(st.Search.RetryAt(), h.clock.Now(), filter)

	if middleware.IsHTMXRequest(r) {
		render(w, r, http.StatusOK, pages.ClubResults(d))
		return
	}
	render(w, r, http.StatusOK, pages.HomePage(d))
}

// listing collects the results of the listing calls.
type listing struct {
	clubs []models.Club
	ads   []models.Ad
	err   error
}

func (b listing) build(retryAt, now time.Time, filter models.ClubFilter) pages.HomeData {
	d := pages.HomeData{Clubs: b.clubs, Ads: b.ads, Filter: filter}
	switch {
	case b.err == nil:
	case errors.Is(b.err, search.ErrRateLimited):
		wait := retryAt.Sub(now).Round(time.Second)
		if wait < time.Second {
			wait = time.Second
		}
		d.Error = fmt.Sprintf("Too many searches. Try again in %s.", wait)
	default:
		d.Error = backend.UserMessage(b.err)
	}
	return d
}

// ClubPage shows a club with its events, calendar, tickets and menu. Only the club
// itself is required; the other sections degrade to a message.
func (h *PublicHandler) ClubPage(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	ctx := r.Context()
	clubID := chi.URLParam(r, "id")
	log := zerolog.Ctx(ctx).With().
		Str(logger.KeyTag, "handlers.ClubPage").
		Str(logger.KeyClubID, clubID).
		Logger()

	date := r.URL.Query().Get("date")
	if !validation.IsISODate(date) {
		date = h.clock.Now().Format(validation.DateLayout)
	}
	data := pages.ClubData{Date: date}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		club, err := st.API.Club(gctx, clubID)
		if err != nil {
			return err
		}
		data.Club = *club
		return nil
	})
	g.Go(func() error {
		events, err := st.API.ClubEvents(gctx, clubID)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load events")
			data.EventError = backend.UserMessage(err)
		}
		data.Events = events
		return nil
	})
	g.Go(func() error {
		calendar, err := st.API.TicketCalendar(gctx, clubID)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load ticket calendar")
		}
		data.Calendar = calendar
		return nil
	})
	g.Go(func() error {
		tickets, err := st.API.ClubTickets(gctx, clubID)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load tickets")
		}
		data.Tickets = tickets
		return nil
	})
	g.Go(func() error {
		menu, err := st.API.ClubMenu(gctx, clubID)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load menu")
			data.MenuError = backend.UserMessage(err)
		}
		data.Menu = models.GroupMenu(menu)
		return nil
	})
	if err := g.Wait(); err != nil {
		handleError(w, r, err)
		return
	}

	if validation.IsGoogleMapsURL(data.Club.GoogleMapsURL) {
		data.MapsURL = data.Club.GoogleMapsURL
	}
	render(w, r, http.StatusOK, pages.ClubPage(data))
}

// Availability selects a date on the club's selector and renders its
// tickets. A request superseded by a newer date answers 204 so htmx keeps
// the newer content.
func (h *PublicHandler) Availability(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	clubID := chi.URLParam(r, "id")
	date := r.URL.Query().Get("date")
	if !validation.IsISODate(date) {
		render(w, r, http.StatusOK, pages.AvailabilityFragment(pages.AvailabilityData{
			ClubID: clubID,
			Error:  "Please pick a valid date",
		}))
		return
	}

	tickets, err := st.Selector(clubID).Select(r.Context(), date)
	switch {
	case errors.Is(err, availability.ErrSuperseded), errors.Is(err, context.Canceled):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Warn().Err(err).
			Str(logger.KeyTag, "handlers.Availability").
			Str(logger.KeyClubID, clubID).
			Str("date", date).
			Msg("failed to load availability")
		render(w, r, http.StatusOK, pages.AvailabilityFragment(pages.AvailabilityData{
			ClubID:   clubID,
			Snapshot: availability.Snapshot{Date: date, Error: backend.UserMessage(err)},
		}))
		return
	}

	render(w, r, http.StatusOK, pages.AvailabilityFragment(pages.AvailabilityData{
		ClubID:   clubID,
		Snapshot: availability.Snapshot{Date: date, Tickets: tickets},
	}))
}

// Health reports liveness.
func (h *PublicHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   h.clock.Now().UTC().Format(time.RFC3339),
	})
}
