package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// The Value methods below let jsonb columns be written through map based
// updates, where gorm bypasses the field serializer.

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]string(l))
}

func (o CustomizationOptions) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	return jsonValue([]CustomizationOption(o))
}

func (r OrderRating) Value() (driver.Value, error) {
	type plain OrderRating
	return jsonValue(plain(r))
}

// PriceMap maps product ids to quoted unit prices.
type PriceMap map[string]decimal.Decimal

func (m PriceMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return jsonValue(map[string]decimal.Decimal(m))
}
