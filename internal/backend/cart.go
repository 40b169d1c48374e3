package backend

import (
	"context"
	"net/http"

	"nightlife-storefront/internal/models"
)

func (c *Client) CartItems(ctx context.Context) ([]models.CartItem, error) {
	raw, err := c.get(ctx, "/unified-cart", "/unified-cart", nil)
	if err != nil {
		return nil, err
	}
	return NormalizeCartItems(raw), nil
}

func (c *Client) CartTotals(ctx context.Context) (models.CartTotals, error) {
	raw, err := c.get(ctx, "/unified-cart/summary", "/unified-cart/summary", nil)
	if err != nil {
		return models.CartTotals{}, err
	}
	return NormalizeCartTotals(raw), nil
}

func (c *Client) AddToCart(ctx context.Context, req models.AddToCartRequest) error {
	_, err := c.call(ctx, http.MethodPost, "/unified-cart/add", "/unified-cart/add", nil, req)
	return err
}

func (c *Client) UpdateCartLine(ctx context.Context, lineID string, quantity int) error {
	body := map[string]int{"quantity": quantity}
	_, err := c.call(ctx, http.MethodPatch, "/unified-cart/line/:id", "/unified-cart/line/"+escape(lineID), nil, body)
	return err
}

func (c *Client) RemoveCartLine(ctx context.Context, lineID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/unified-cart/line/:id", "/unified-cart/line/"+escape(lineID), nil, nil)
	return err
}

func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodDelete, "/unified-cart/clear", "/unified-cart/clear", nil, nil)
	return err
}
