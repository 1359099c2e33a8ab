package enums

import "fmt"

// CustomizationOptionType describes how a customer fills in a product option.
type CustomizationOptionType string

const (
	CustomizationOptionText   CustomizationOptionType = "text"
	CustomizationOptionSelect CustomizationOptionType = "select"
	CustomizationOptionImage  CustomizationOptionType = "image"
)

var validCustomizationOptionTypes = []CustomizationOptionType{
	CustomizationOptionText,
	CustomizationOptionSelect,
	CustomizationOptionImage,
}

func (c CustomizationOptionType) IsValid() bool {
	for _, candidate := range validCustomizationOptionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCustomizationOptionType converts raw input into a CustomizationOptionType.
func ParseCustomizationOptionType(value string) (CustomizationOptionType, error) {
	for _, candidate := range validCustomizationOptionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customization option type %q", value)
}
