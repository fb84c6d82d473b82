package storefront

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/products/":                            "/products/",
		"/products/42/":                         "/products/:id/",
		"/orders/42/cancel/?x=1":                "/orders/:id/cancel/",
		"/payments/01ARZ3NDEKTSV4RRFFQ69G5FAV/": "/payments/:id/",
		"/shipping/fee/?city=Dakar":             "/shipping/fee/",
	}
	for in, want := range tests {
		assert.Equal(t, want, routeLabel(in), in)
	}
}
