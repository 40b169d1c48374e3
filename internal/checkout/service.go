// Package checkout starts payments and follows a transaction until the
// payment processor reports an outcome.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/metrics"
	"nightlife-storefront/internal/models"
)

const DefaultWait = 20 * time.Second

var ErrEmptyCart = errors.New("your cart is empty")

// Result page routes.
const (
	RouteSuccess  = "/checkout/success"
	RouteDeclined = "/checkout/declined"
	RouteError    = "/checkout/error"
	RouteTimeout  = "/checkout/timeout"
)

// RouteFor maps a final status to its result page.
func RouteFor(status models.TransactionStatus) string {
	switch status {
	case models.TransactionApproved:
		return RouteSuccess
	case models.TransactionDeclined:
		return RouteDeclined
	case models.TransactionTimeout:
		return RouteTimeout
	}
	return RouteError
}

// API is what the checkout flow needs from the backend client.
type API interface {
	InitiateCheckout(ctx context.Context, req models.CheckoutRequest) (models.CheckoutSession, error)
	CheckoutStatus(ctx context.Context, txID string) (models.StatusUpdate, error)
	SubscribeStatus(ctx context.Context, txID string, fn func(models.StatusUpdate) bool) error
}

// CartClearer empties the session cart after an approved payment.
type CartClearer interface {
	ClearCart(ctx context.Context) error
}

type Deps struct {
	API     API
	Cart    CartClearer
	Details DetailsStore
	Clock   clock.Clock
	Metrics *metrics.Metrics
	// Wait bounds how long Await blocks before answering PENDING.
	Wait time.Duration
}

type Service struct {
	api     API
	cart    CartClearer
	details DetailsStore
	clock   clock.Clock
	metrics *metrics.Metrics
	wait    time.Duration
}

func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clock.WallClock
	}
	if d.Wait <= 0 {
		d.Wait = DefaultWait
	}
	return &Service{
		api:     d.API,
		cart:    d.Cart,
		details: d.Details,
		clock:   d.Clock,
		metrics: d.Metrics,
		wait:    d.Wait,
	}
}

// Outcome is what the processing page shows.
type Outcome struct {
	Status  models.TransactionStatus
	Route   string
	Details models.TransactionDetails
	// SubscriptionError is set when live updates failed; the immediate
	// check still ran.
	SubscriptionError string
}

func (o Outcome) Done() bool {
	return o.Status != models.TransactionPending
}

// Initiate starts a payment for the cart lines and records the transaction
// as PENDING.
func (s *Service) Initiate(ctx context.Context, req models.CheckoutRequest, items []models.CartItem) (models.CheckoutSession, error) {
	if len(items) == 0 {
		return models.CheckoutSession{}, ErrEmptyCart
	}
	session, err := s.api.InitiateCheckout(ctx, req)
	if err != nil {
		return models.CheckoutSession{}, fmt.Errorf("failed to initiate checkout: %w", err)
	}
	if session.TransactionID == "" {
		return models.CheckoutSession{}, errors.New("backend returned no transaction id")
	}

	amount := session.Amount
	if amount.IsZero() {
		amount = models.Summarize(items).Total
	}
	now := s.clock.Now()
	d := models.TransactionDetails{
		TransactionID: session.TransactionID,
		Status:        models.TransactionPending,
		Reference:     session.Reference,
		Amount:        amount,
		Currency:      session.Currency,
		Email:         req.Email,
		FullName:      req.FullName,
		ClubID:        items[0].ClubID,
		Date:          items[0].Date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.details.Save(ctx, d); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str(logger.KeyTag, "checkout.Service.Initiate").
			Str(logger.KeyTransaction, d.TransactionID).
			Msg("failed to persist transaction details")
	}
	return session, nil
}

// Await subscribes to status pushes and performs one immediate status check
// at the same time. The first non-PENDING status wins and is persisted. When
// neither produces one before the wait elapses the outcome is PENDING.
func (s *Service) Await(ctx context.Context, txID string) (Outcome, error) {
	log := zerolog.Ctx(ctx).With().
		Str(logger.KeyTag, "checkout.Service.Await").
		Str(logger.KeyTransaction, txID).
		Logger()

	waitCtx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()

	updates := make(chan models.StatusUpdate, 2)
	subDone := make(chan error, 1)
	checkDone := make(chan error, 1)

	go func() {
		subDone <- s.api.SubscribeStatus(waitCtx, txID, func(u models.StatusUpdate) bool {
			if !u.Status.IsTerminal() {
				return true
			}
			updates <- u
			return false
		})
	}()
	go func() {
		u, err := s.api.CheckoutStatus(waitCtx, txID)
		if err == nil && u.Status.IsTerminal() {
			updates <- u
		}
		checkDone <- err
	}()

	var (
		subErr  string
		running = 2
	)
	for running > 0 {
		select {
		case u := <-updates:
			return s.finish(ctx, txID, u, subErr), nil
		case err := <-subDone:
			running--
			if err != nil && waitCtx.Err() == nil {
				subErr = backend.UserMessage(err)
				log.Warn().Err(err).Msg("status subscription failed")
			}
		case err := <-checkDone:
			running--
			if err != nil && waitCtx.Err() == nil {
				log.Warn().Err(err).Msg("immediate status check failed")
			}
		case <-waitCtx.Done():
			running = 0
		}
	}

	// A result may have landed while the last goroutine reported in.
	select {
	case u := <-updates:
		return s.finish(ctx, txID, u, subErr), nil
	default:
	}

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	d, _ := s.lastFor(ctx, txID)
	return Outcome{Status: models.TransactionPending, Details: d, SubscriptionError: subErr}, nil
}

func (s *Service) finish(ctx context.Context, txID string, u models.StatusUpdate, subErr string) Outcome {
	log := zerolog.Ctx(ctx).With().
		Str(logger.KeyTag, "checkout.Service.finish").
		Str(logger.KeyTransaction, txID).
		Str(logger.KeyStatus, string(u.Status)).
		Logger()

	prev, err := s.lastFor(ctx, txID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load transaction details")
	}
	d := prev.Merge(u, s.clock.Now())
	if d.TransactionID == "" {
		d.TransactionID = txID
	}
	if err := s.details.Save(ctx, d); err != nil {
		log.Warn().Err(err).Msg("failed to persist transaction details")
	}

	if u.Status == models.TransactionApproved && s.cart != nil {
		if err := s.cart.ClearCart(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to clear cart after approved payment")
		}
	}
	s.metrics.CheckoutResult(string(u.Status))
	log.Info().Msg("checkout finished")

	return Outcome{
		Status:            u.Status,
		Route:             RouteFor(u.Status),
		Details:           d,
		SubscriptionError: subErr,
	}
}

// lastFor returns the stored details when they belong to txID.
func (s *Service) lastFor(ctx context.Context, txID string) (models.TransactionDetails, error) {
	d, err := s.details.Load(ctx)
	if err != nil || d == nil || d.TransactionID != txID {
		return models.TransactionDetails{TransactionID: txID}, err
	}
	return *d, nil
}

// Last returns the most recent transaction of the session, if any.
func (s *Service) Last(ctx context.Context) (*models.TransactionDetails, error) {
	return s.details.Load(ctx)
}
