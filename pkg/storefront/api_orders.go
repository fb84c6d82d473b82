package storefront

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
)

// CreateOrder places an order. Guest checkout is allowed: if the session
// cannot be renewed the server's answer is returned and the session kept.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var out Order
	if err := c.authed.Do(ctx, http.MethodPost, "/orders/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out list[Order]
	if err := c.authed.Do(ctx, http.MethodGet, "/orders/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Order(ctx context.Context, id commerce.ID) (*Order, error) {
	var out Order
	if err := c.authed.Do(ctx, http.MethodGet, "/orders/"+id.String()+"/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelOrder(ctx context.Context, id commerce.ID) (*Order, error) {
	var out Order
	if err := c.authed.Do(ctx, http.MethodPost, "/orders/"+id.String()+"/cancel/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================================
// Payments
// ============================================================================

func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var out Payment
	if err := c.authed.Do(ctx, http.MethodPost, "/payments/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Payments(ctx context.Context) ([]Payment, error) {
	var out list[Payment]
	if err := c.authed.Do(ctx, http.MethodGet, "/payments/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Payment(ctx context.Context, id commerce.ID) (*Payment, error) {
	var out Payment
	if err := c.authed.Do(ctx, http.MethodGet, "/payments/"+id.String()+"/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmPayment confirms a mobile money payment.
func (c *Client) ConfirmPayment(ctx context.Context, id commerce.ID) (*Payment, error) {
	var out Payment
	if err := c.authed.Do(ctx, http.MethodPost, "/payments/"+id.String()+"/confirm/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelPayment(ctx context.Context, id commerce.ID) (*Payment, error) {
	var out Payment
	if err := c.authed.Do(ctx, http.MethodPost, "/payments/"+id.String()+"/cancel/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
