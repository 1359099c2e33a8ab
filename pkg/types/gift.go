package types

import (
	"strings"
	"time"
)

// GiftDetails describes the recipient of a gift order.
type GiftDetails struct {
	RecipientName            string `json:"recipient_name" validate:"required,max=120"`
	RecipientPhone           string `json:"recipient_phone,omitempty" validate:"max=32"`
	Message                  string `json:"message,omitempty" validate:"max=1000"`
	RecipientCanViewAndTrack bool   `json:"recipient_can_view_and_track"`
	ShowPricesToRecipient    bool   `json:"show_prices_to_recipient"`
}

// RecipientFirstName returns the first token of the recipient name.
func (g GiftDetails) RecipientFirstName() string {
	fields := strings.Fields(g.RecipientName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// OrderRating is the one-time post-delivery feedback left by a customer.
type OrderRating struct {
	Score   int       `json:"score"`
	Comment string    `json:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}
