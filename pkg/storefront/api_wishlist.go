package storefront

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
)

var _ commerce.WishlistRemote = (*Client)(nil)

// Wishlist returns the server-side wishlist of the logged in user.
func (c *Client) Wishlist(ctx context.Context) ([]commerce.Product, error) {
	var out list[commerce.Product]
	if err := c.authed.Do(ctx, http.MethodGet, "/wishlist/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddToWishlist(ctx context.Context, id commerce.ID) error {
	return c.authed.Do(ctx, http.MethodPost, "/wishlist/add/"+id.String()+"/", nil, nil)
}

func (c *Client) RemoveFromWishlist(ctx context.Context, id commerce.ID) error {
	return c.authed.Do(ctx, http.MethodDelete, "/wishlist/remove/"+id.String()+"/", nil, nil)
}

// InWishlist asks the server whether id is on the user's wishlist. It is a
// guest route by default: a failed renewal here never ends the session.
func (c *Client) InWishlist(ctx context.Context, id commerce.ID) (bool, error) {
	var out wishlistCheck
	if err := c.authed.Do(ctx, http.MethodGet, "/wishlist/check/"+id.String()+"/", nil, &out); err != nil {
		return false, err
	}
	return out.InWishlist, nil
}
