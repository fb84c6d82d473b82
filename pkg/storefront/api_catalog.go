package storefront

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
)

// Products lists the catalog.
func (c *Client) Products(ctx context.Context) ([]commerce.Product, error) {
	var out list[commerce.Product]
	if err := c.public.Do(ctx, http.MethodGet, "/products/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, id commerce.ID) (*commerce.Product, error) {
	var p commerce.Product
	if err := c.public.Do(ctx, http.MethodGet, "/products/"+id.String()+"/", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ============================================================================
// Reviews
// ============================================================================

func (c *Client) ProductReviews(ctx context.Context, product commerce.ID) ([]Review, error) {
	var out list[Review]
	if err := c.public.Do(ctx, http.MethodGet, "/reviews/product/"+product.String()+"/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProductReviewStats(ctx context.Context, product commerce.ID) (*ReviewStats, error) {
	var out ReviewStats
	if err := c.public.Do(ctx, http.MethodGet, "/reviews/product/"+product.String()+"/stats/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CanReview(ctx context.Context, product commerce.ID) (*CanReview, error) {
	var out CanReview
	if err := c.authed.Do(ctx, http.MethodGet, "/reviews/can-review/"+product.String()+"/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateReview(ctx context.Context, r Review) (*Review, error) {
	var out Review
	if err := c.authed.Do(ctx, http.MethodPost, "/reviews/", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateReview patches the given fields of a review.
func (c *Client) UpdateReview(ctx context.Context, id commerce.ID, fields map[string]any) (*Review, error) {
	var out Review
	if err := c.authed.Do(ctx, http.MethodPatch, "/reviews/"+id.String()+"/", fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteReview(ctx context.Context, id commerce.ID) error {
	return c.authed.Do(ctx, http.MethodDelete, "/reviews/"+id.String()+"/", nil, nil)
}

func (c *Client) MyReviews(ctx context.Context) ([]Review, error) {
	var out list[Review]
	if err := c.authed.Do(ctx, http.MethodGet, "/reviews/my_reviews/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
