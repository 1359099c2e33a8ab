package orders

import (
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type edge struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

type rule struct {
	roles []enums.Role
	// assignedRider lets the rider stamped on the order take the edge.
	assignedRider bool
	// assignOnly edges are reachable through AssignRider, never Transition.
	assignOnly bool
}

var (
	managers     = []enums.Role{enums.RoleAdmin, enums.RoleDispatchManager}
	intakeRoles  = []enums.Role{enums.RoleAdmin, enums.RoleDispatchManager, enums.RoleCustomerService}
	workshop     = []enums.Role{enums.RoleAdmin, enums.RoleDispatchManager, enums.RoleTechnician}
	financeRoles = []enums.Role{enums.RoleFinanceManager, enums.RoleAdmin}
	cancelRoles  = []enums.Role{
		enums.RoleAdmin,
		enums.RoleDispatchManager,
		enums.RoleCustomerService,
		enums.RoleFinanceManager,
		enums.RoleSystem,
	}
)

var transitions = map[edge]rule{
	{enums.OrderStatusPending, enums.OrderStatusProcessing}:                        {roles: intakeRoles},
	{enums.OrderStatusPending, enums.OrderStatusPendingFinanceApproval}:            {roles: intakeRoles},
	{enums.OrderStatusProcessing, enums.OrderStatusPendingFinanceApproval}:         {roles: workshop},
	{enums.OrderStatusProcessing, enums.OrderStatusAwaitingAssignment}:             {roles: workshop},
	{enums.OrderStatusProcessing, enums.OrderStatusShipped}:                        {roles: managers},
	{enums.OrderStatusPendingFinanceApproval, enums.OrderStatusProcessing}:         {roles: financeRoles},
	{enums.OrderStatusPendingFinanceApproval, enums.OrderStatusAwaitingAssignment}: {roles: financeRoles},
	{enums.OrderStatusAwaitingAssignment, enums.OrderStatusAssigned}:               {roles: managers, assignOnly: true},
	{enums.OrderStatusAssigned, enums.OrderStatusAssigned}:                         {roles: managers, assignOnly: true},
	{enums.OrderStatusAssigned, enums.OrderStatusOutForDelivery}:                   {assignedRider: true},
	{enums.OrderStatusAwaitingAssignment, enums.OrderStatusShipped}:                {roles: managers},
	{enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered}:                  {roles: managers, assignedRider: true},
	{enums.OrderStatusOutForDelivery, enums.OrderStatusDeliveryAttempted}:          {roles: managers, assignedRider: true},
	{enums.OrderStatusDeliveryAttempted, enums.OrderStatusOutForDelivery}:          {roles: managers, assignedRider: true},
	{enums.OrderStatusShipped, enums.OrderStatusDelivered}:                         {roles: managers},
}

// CheckTransition reports whether actor may move order to the target status
// through the generic transition operation. Cancellation and rider
// assignment have their own checks.
func CheckTransition(order *models.Order, to enums.OrderStatus, actor types.Actor) error {
	r, ok := transitions[edge{from: order.Status, to: to}]
	if !ok || r.assignOnly {
		return pkgerrors.StateConflict("order", string(order.Status), string(to))
	}
	return r.authorize(order, actor)
}

func checkAssignment(order *models.Order, actor types.Actor) error {
	r, ok := transitions[edge{from: order.Status, to: enums.OrderStatusAssigned}]
	if !ok {
		return pkgerrors.StateConflict("order", string(order.Status), string(enums.OrderStatusAssigned))
	}
	return r.authorize(order, actor)
}

// CheckCancel applies the cancellation rule: any non-terminal state for
// operators, and only pending for the owning customer.
func CheckCancel(order *models.Order, actor types.Actor) error {
	if order.Status.IsTerminal() {
		return pkgerrors.StateConflict("order", string(order.Status), string(enums.OrderStatusCancelled))
	}
	if actor.Role.In(cancelRoles...) {
		return nil
	}
	if actor.Role == enums.RoleCustomer {
		if order.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.StateConflict("order", string(order.Status), string(enums.OrderStatusCancelled))
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role may not cancel orders")
}

func (r rule) authorize(order *models.Order, actor types.Actor) error {
	if actor.Role.In(r.roles...) {
		return nil
	}
	if r.assignedRider && actor.Role == enums.RoleRider {
		if order.RiderID != nil && *order.RiderID == actor.UserID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this rider")
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role may not perform this transition").
		WithDetails(map[string]string{"role": string(actor.Role)})
}

var paymentMoves = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {enums.PaymentStatusPaid, enums.PaymentStatusFailed},
	enums.PaymentStatusFailed:  {enums.PaymentStatusPaid, enums.PaymentStatusPending},
	enums.PaymentStatusPaid:    {enums.PaymentStatusRefunded},
}

func checkPaymentMove(from, to enums.PaymentStatus) error {
	for _, candidate := range paymentMoves[from] {
		if candidate == to {
			return nil
		}
	}
	return pkgerrors.StateConflict("payment", string(from), string(to))
}
