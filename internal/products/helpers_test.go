package products

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

func modelsProduct(options types.CustomizationOptions, groupID *uuid.UUID) models.Product {
	return models.Product{ID: uuid.New(), CustomizationOptions: options, CustomizationGroupID: groupID}
}

func modelsGroup(id uuid.UUID, options types.CustomizationOptions) *models.CustomizationGroupDefinition {
	return &models.CustomizationGroupDefinition{ID: id, Options: options}
}
