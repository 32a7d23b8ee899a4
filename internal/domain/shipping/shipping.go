package shipping

import "context"

// City is an active delivery destination with its flat shipping charge.
type City struct {
	Name        string
	Province    string
	ChargeCents int64
	IsActive    bool
}

// Repository resolves shipping charges by destination city.
type Repository interface {
	// ChargeForCity returns the shipping charge for an active city, or 0
	// when no active city matches (free-shipping fallback, per the
	// storefront's pricing rules).
	ChargeForCity(ctx context.Context, city string) (int64, error)
}
