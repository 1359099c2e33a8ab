package types

import (
	"strings"
)

// ShippingAddress is the delivery destination stored on orders and bulk requests.
type ShippingAddress struct {
	Line1        string   `json:"line1" validate:"required,max=200"`
	Line2        string   `json:"line2,omitempty" validate:"max=200"`
	Town         string   `json:"town" validate:"required,max=120"`
	County       string   `json:"county" validate:"required,max=120"`
	Lat          *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng          *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	Instructions string   `json:"instructions,omitempty" validate:"max=500"`
}

// HasCoordinates reports whether both lat and lng are present.
func (a ShippingAddress) HasCoordinates() bool {
	return a.Lat != nil && a.Lng != nil
}

// Normalize trims whitespace on all text fields.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.Town = strings.TrimSpace(a.Town)
	a.County = strings.TrimSpace(a.County)
	a.Instructions = strings.TrimSpace(a.Instructions)
	return a
}

// LatLng is a geographic point used by routing.
type LatLng struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}
