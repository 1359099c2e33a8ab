package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/internal/users"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/maps"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type Riders interface {
	ListRiders(ctx context.Context) ([]users.RiderDTO, error)
}

type Orders interface {
	Lookup(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	RiderLoads(ctx context.Context, riderIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// Router is satisfied by *maps.Client.
type Router interface {
	Directions(ctx context.Context, origin, destination types.LatLng) (*maps.Route, error)
}

type Service interface {
	ListRiders(ctx context.Context, actor types.Actor) ([]RiderLoad, error)
	Route(ctx context.Context, actor types.Actor, orderID uuid.UUID, from types.LatLng) (*RouteDTO, error)
}

type RiderLoad struct {
	users.RiderDTO
	ActiveAssignments int `json:"active_assignments"`
}

type RouteDTO struct {
	OrderID         uuid.UUID       `json:"order_id"`
	From            types.LatLng    `json:"from"`
	To              types.LatLng    `json:"to"`
	Geometry        maps.LineString `json:"geometry"`
	DistanceMeters  float64         `json:"distance_meters"`
	DurationSeconds float64         `json:"duration_seconds"`
}

var managerRoles = []enums.Role{enums.RoleDispatchManager, enums.RoleAdmin}

type service struct {
	riders Riders
	orders Orders
	router Router
}

func NewService(riders Riders, orders Orders, router Router) (Service, error) {
	if riders == nil {
		return nil, fmt.Errorf("riders required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders required")
	}
	if router == nil {
		return nil, fmt.Errorf("router required")
	}
	return &service{riders: riders, orders: orders, router: router}, nil
}

func (s *service) ListRiders(ctx context.Context, actor types.Actor) ([]RiderLoad, error) {
	if !actor.Role.In(managerRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not list riders")
	}
	riders, err := s.riders.ListRiders(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(riders))
	for _, r := range riders {
		ids = append(ids, r.ID)
	}
	loads, err := s.orders.RiderLoads(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]RiderLoad, 0, len(riders))
	for _, r := range riders {
		out = append(out, RiderLoad{RiderDTO: r, ActiveAssignments: loads[r.ID]})
	}
	return out, nil
}

func (s *service) Route(ctx context.Context, actor types.Actor, orderID uuid.UUID, from types.LatLng) (*RouteDTO, error) {
	order, err := s.orders.Lookup(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.In(managerRoles...) {
		if actor.Role != enums.RoleRider || order.RiderID == nil || *order.RiderID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this rider")
		}
	}
	addr := order.ShippingAddress
	if !addr.HasCoordinates() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no delivery coordinates").
			WithDetails(map[string]any{"shipping_address": "lat and lng are required"})
	}
	to := types.LatLng{Lat: *addr.Lat, Lng: *addr.Lng}

	route, err := s.router.Directions(ctx, from, to)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "route lookup failed")
	}
	return &RouteDTO{
		OrderID:         order.ID,
		From:            from,
		To:              to,
		Geometry:        route.Geometry,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
	}, nil
}
