package commerce

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidProduct is returned when a product without an id is added to a
// container.
var ErrInvalidProduct = errors.New("commerce: product has no id")

// ID identifies a product. The API sends numeric ids; ID also accepts
// strings so that callers can pass ids taken from URLs or flags.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("commerce: invalid id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Product is the display snapshot of a catalog item.
type Product struct {
	ID          ID              `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category,omitempty"`
	Stock       int             `json:"stock"`
}

func (p Product) validate() error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	return nil
}
