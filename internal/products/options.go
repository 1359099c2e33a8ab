package products

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// EffectiveOptions returns the group's options when the product references a
// group with a non-empty option list, otherwise the product's inline options.
func EffectiveOptions(product models.Product, group *models.CustomizationGroupDefinition) types.CustomizationOptions {
	if product.CustomizationGroupID != nil && group != nil && group.ID == *product.CustomizationGroupID && len(group.Options) > 0 {
		return group.Options
	}
	return product.CustomizationOptions
}

// PriceSelections validates chosen customizations against the options and
// returns the summed extra price. Unknown option names and missing required
// options are reported per field.
func PriceSelections(options types.CustomizationOptions, selections map[string]string) (decimal.Decimal, map[string]string) {
	extra := decimal.Zero
	problems := map[string]string{}

	for name := range selections {
		if _, ok := options.Find(name); !ok {
			problems[name] = "unknown option"
		}
	}
	for _, option := range options {
		value := strings.TrimSpace(selections[option.Name])
		if value == "" {
			if option.Required {
				problems[option.Name] = "required"
			}
			continue
		}
		if option.Type == enums.CustomizationOptionSelect && len(option.Choices) > 0 && !contains(option.Choices, value) {
			problems[option.Name] = fmt.Sprintf("must be one of %s", strings.Join(option.Choices, ", "))
			continue
		}
		extra = extra.Add(option.ExtraPrice)
	}
	if len(problems) == 0 {
		return extra, nil
	}
	return extra, problems
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func validateOptions(options types.CustomizationOptions) map[string]string {
	problems := map[string]string{}
	seen := map[string]struct{}{}
	for i, option := range options {
		key := fmt.Sprintf("customization_options[%d]", i)
		name := strings.TrimSpace(option.Name)
		if name == "" {
			problems[key] = "name is required"
			continue
		}
		if _, dup := seen[name]; dup {
			problems[key] = "duplicate option name"
		}
		seen[name] = struct{}{}
		if !option.Type.IsValid() {
			problems[key] = "type must be text, select or image"
		}
		if option.Type == enums.CustomizationOptionSelect && len(option.Choices) == 0 {
			problems[key] = "select options need choices"
		}
		if option.ExtraPrice.IsNegative() {
			problems[key] = "extra_price must not be negative"
		}
	}
	return problems
}
