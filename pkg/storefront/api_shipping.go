package storefront

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
)

func (c *Client) Addresses(ctx context.Context) ([]Address, error) {
	var out list[Address]
	if err := c.authed.Do(ctx, http.MethodGet, "/shipping/addresses/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DefaultAddress(ctx context.Context) (*Address, error) {
	var out Address
	if err := c.authed.Do(ctx, http.MethodGet, "/shipping/addresses/default/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateAddress(ctx context.Context, a Address) (*Address, error) {
	var out Address
	if err := c.authed.Do(ctx, http.MethodPost, "/shipping/addresses/", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAddress(ctx context.Context, id commerce.ID, a Address) (*Address, error) {
	var out Address
	if err := c.authed.Do(ctx, http.MethodPut, "/shipping/addresses/"+id.String()+"/", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAddress(ctx context.Context, id commerce.ID) error {
	return c.authed.Do(ctx, http.MethodDelete, "/shipping/addresses/"+id.String()+"/", nil, nil)
}

func (c *Client) SetDefaultAddress(ctx context.Context, id commerce.ID) error {
	return c.authed.Do(ctx, http.MethodPost, "/shipping/addresses/"+id.String()+"/set_default/", nil, nil)
}

// ShippingZones lists delivery zones. Public.
func (c *Client) ShippingZones(ctx context.Context) ([]ShippingZone, error) {
	var out list[ShippingZone]
	if err := c.public.Do(ctx, http.MethodGet, "/shipping/zones/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ShippingFeeByCity quotes the delivery fee for city. Public.
func (c *Client) ShippingFeeByCity(ctx context.Context, city string) (*ShippingFee, error) {
	var out ShippingFee
	p := "/shipping/zones/by_city/?city=" + url.QueryEscape(city)
	if err := c.public.Do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
