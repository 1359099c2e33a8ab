package types

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// SystemActor is used by background jobs.
func SystemActor() Actor {
	return Actor{Role: enums.RoleSystem}
}

func (a Actor) IsSystem() bool {
	return a.Role == enums.RoleSystem
}

// UserIDPtr returns nil for the system actor.
func (a Actor) UserIDPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
