package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

// SeedUser inserts an approved, enabled user with the role.
func SeedUser(t *testing.T, conn *gorm.DB, role enums.Role, name string) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "x",
		DisplayName:  name,
		Role:         role,
		Status:       enums.UserStatusApproved,
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

// SeedProduct inserts an active product priced at price.
func SeedProduct(t *testing.T, conn *gorm.DB, name, price string) models.Product {
	t.Helper()
	product := models.Product{
		ID:            uuid.New(),
		Name:          name,
		Category:      "gifts",
		Price:         decimal.RequireFromString(price),
		StockQuantity: 10,
		Active:        true,
	}
	require.NoError(t, conn.Create(&product).Error)
	return product
}

// SeedShipping inserts an active region and method with the base price.
func SeedShipping(t *testing.T, conn *gorm.DB, basePrice string) (region models.ShippingRegion, method models.ShippingMethod) {
	t.Helper()
	region = models.ShippingRegion{ID: uuid.New(), Name: "Nairobi", County: "Nairobi", Active: true}
	require.NoError(t, conn.Create(&region).Error)
	method = models.ShippingMethod{ID: uuid.New(), Name: "Standard", BasePrice: decimal.RequireFromString(basePrice), Duration: "1d", Active: true}
	require.NoError(t, conn.Create(&method).Error)
	return region, method
}
