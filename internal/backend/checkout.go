package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/models"
)

func (c *Client) CheckoutStatus(ctx context.Context, txID string) (models.StatusUpdate, error) {
	raw, err := c.get(ctx, "/checkout/unified/status/:id", "/checkout/unified/status/"+escape(txID), nil)
	if err != nil {
		return models.StatusUpdate{}, err
	}
	u := NormalizeStatusUpdate(raw)
	if u.TransactionID == "" {
		u.TransactionID = txID
	}
	return u, nil
}

// SubscribeStatus streams status pushes for a transaction. fn is called for
// every update until it returns false, the stream closes or ctx ends.
func (c *Client) SubscribeStatus(ctx context.Context, txID string, fn func(models.StatusUpdate) bool) error {
	route := "/checkout/unified/status/:id/stream"
	resp, err := c.do(ctx, c.streaming, http.MethodGet, route, "/checkout/unified/status/"+escape(txID)+"/stream", nil, nil, "text/event-stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	log := zerolog.Ctx(ctx).With().Str(logger.KeyTag, "backend.SubscribeStatus").Str(logger.KeyTransaction, txID).Logger()

	err = readEvents(resp.Body, func(ev Event) bool {
		if ev.Name == "ping" || strings.TrimSpace(ev.Data) == "" {
			return true
		}
		var raw any
		dec := json.NewDecoder(strings.NewReader(ev.Data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			log.Debug().Err(err).Str("data", ev.Data).Msg("skipping malformed status event")
			return true
		}
		u := NormalizeStatusUpdate(raw)
		if u.TransactionID == "" {
			u.TransactionID = txID
		}
		return fn(u)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) InitiateCheckout(ctx context.Context, req models.CheckoutRequest) (models.CheckoutSession, error) {
	raw, err := c.call(ctx, http.MethodPost, "/checkout/unified/initiate", "/checkout/unified/initiate", nil, req)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	return NormalizeCheckoutSession(raw), nil
}
