package types

import (
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// CustomizationOption is one configurable attribute of a product, such as an
// engraving text or a wrapping color.
type CustomizationOption struct {
	Name       string                        `json:"name" validate:"required,max=80"`
	Type       enums.CustomizationOptionType `json:"type" validate:"required,oneof=text select image"`
	Choices    []string                      `json:"choices,omitempty" validate:"omitempty,dive,max=120"`
	Required   bool                          `json:"required"`
	ExtraPrice decimal.Decimal               `json:"extra_price"`
}

// CustomizationOptions is the jsonb list stored on products and groups.
type CustomizationOptions []CustomizationOption

// Find returns the option with the given name.
func (o CustomizationOptions) Find(name string) (CustomizationOption, bool) {
	for _, option := range o {
		if option.Name == name {
			return option, true
		}
	}
	return CustomizationOption{}, false
}
