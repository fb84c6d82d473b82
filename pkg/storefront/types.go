package storefront

import (
	"encoding/json"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
	"github.com/shopspring/decimal"
)

// User is the identity attached to a session.
type User struct {
	ID        commerce.ID `json:"id,omitempty"`
	Username  string      `json:"username"`
	Name      string      `json:"nom_cli,omitempty"`
	Email     string      `json:"email,omitempty"`
	FirstName string      `json:"first_name,omitempty"`
	LastName  string      `json:"last_name,omitempty"`
}

// DisplayName is the best human readable name available.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Name != "":
		return u.Name
	default:
		return u.Username
	}
}

// Tokens is the credential pair issued by the API.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// ============================================================================
// Auth
// ============================================================================

type loginRequest struct {
	Name     string `json:"nom_cli"`
	Password string `json:"password"`
}

// AuthResponse is returned by login style endpoints.
type AuthResponse struct {
	User   *User  `json:"user"`
	Tokens Tokens `json:"tokens"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"nom_cli"`
	Phone      string `json:"numero_cli,omitempty"`
	Address    string `json:"adresse_cli,omitempty"`
	City       string `json:"ville_cli,omitempty"`
	PostalCode string `json:"code_postal_cli,omitempty"`
	Country    string `json:"pays_cli,omitempty"`
	Merchant   bool   `json:"commerçant"`
	Role       string `json:"role,omitempty"`
}

// ProfileUpdate is the payload of UpdateProfile. Empty fields are left
// unchanged by the API.
type ProfileUpdate struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Name      string `json:"nom_cli,omitempty"`
}

// PasswordChange is the payload of ChangePassword.
type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ============================================================================
// Orders and payments
// ============================================================================

// OrderRequest creates an order from cart lines.
type OrderRequest struct {
	Items           []commerce.OrderItem `json:"items"`
	ShippingAddress commerce.ID          `json:"shipping_address,omitempty"`
	PaymentMethod   string               `json:"payment_method,omitempty"`
	Notes           string               `json:"notes,omitempty"`
}

type Order struct {
	ID          commerce.ID     `json:"id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderLine     `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderLine struct {
	Product  commerce.ID     `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// PaymentRequest starts a payment for an order.
type PaymentRequest struct {
	Order       commerce.ID `json:"order"`
	Method      string      `json:"payment_method"`
	PhoneNumber string      `json:"phone_number,omitempty"`
}

type Payment struct {
	ID        commerce.ID     `json:"id"`
	Order     commerce.ID     `json:"order"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"payment_method"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// ============================================================================
// Reviews
// ============================================================================

type Review struct {
	ID        commerce.ID `json:"id,omitempty"`
	Product   commerce.ID `json:"product"`
	Rating    int         `json:"rating"`
	Title     string      `json:"title,omitempty"`
	Comment   string      `json:"comment"`
	User      string      `json:"user_name,omitempty"`
	CreatedAt time.Time   `json:"created_at,omitzero"`
}

type ReviewStats struct {
	AverageRating decimal.Decimal `json:"average_rating"`
	TotalReviews  int             `json:"total_reviews"`
	Distribution  map[string]int  `json:"rating_distribution,omitempty"`
}

type CanReview struct {
	CanReview bool   `json:"can_review"`
	Reason    string `json:"reason,omitempty"`
}

// ============================================================================
// Shipping
// ============================================================================

type Address struct {
	ID         commerce.ID `json:"id,omitempty"`
	FullName   string      `json:"full_name"`
	Phone      string      `json:"phone"`
	Street     string      `json:"address"`
	City       string      `json:"city"`
	PostalCode string      `json:"postal_code,omitempty"`
	Country    string      `json:"country,omitempty"`
	IsDefault  bool        `json:"is_default"`
}

type ShippingZone struct {
	ID           commerce.ID     `json:"id"`
	Name         string          `json:"name"`
	Cities       json.RawMessage `json:"cities,omitempty"`
	ShippingFee  decimal.Decimal `json:"shipping_fee"`
	DeliveryDays int             `json:"delivery_days,omitempty"`
}

type ShippingFee struct {
	City         string          `json:"city"`
	Zone         string          `json:"zone,omitempty"`
	ShippingFee  decimal.Decimal `json:"shipping_fee"`
	DeliveryDays int             `json:"delivery_days,omitempty"`
}

// ============================================================================
// Wishlist
// ============================================================================

type wishlistCheck struct {
	InWishlist bool `json:"in_wishlist"`
}
