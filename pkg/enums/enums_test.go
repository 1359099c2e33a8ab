package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleNormalizesInput(t *testing.T) {
	role, err := ParseRole("  Finance_Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleFinanceManager, role)

	_, err = ParseRole("system")
	require.Error(t, err, "system role must not be assignable")
}

func TestRoleIsStaff(t *testing.T) {
	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleTechnician.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())
	assert.False(t, RoleRider.IsStaff())
	assert.False(t, RoleSupplier.IsStaff())
	assert.False(t, Role("").IsStaff())
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, status := range validOrderStatuses {
		want := status == OrderStatusDelivered || status == OrderStatusCancelled
		assert.Equal(t, want, status.IsTerminal(), status)
	}
}

func TestStockRequestStatusAcceptsBids(t *testing.T) {
	assert.True(t, StockRequestStatusPendingBids.AcceptsBids())
	assert.True(t, StockRequestStatusPendingAward.AcceptsBids())
	assert.False(t, StockRequestStatusAwarded.AcceptsBids())
	assert.True(t, StockRequestStatusRejectedFinance.IsTerminal())
	assert.False(t, StockRequestStatusAwaitingReceipt.IsTerminal())
}

func TestParseOutboxEventType(t *testing.T) {
	evt, err := ParseOutboxEventType("stock_request.awarded")
	require.NoError(t, err)
	assert.Equal(t, EventStockRequestAwarded, evt)

	_, err = ParseOutboxEventType("order_created")
	require.Error(t, err)
}

func TestPaymentHelpers(t *testing.T) {
	assert.True(t, PaymentStatusPending.Unsettled())
	assert.True(t, PaymentStatusFailed.Unsettled())
	assert.False(t, PaymentStatusPaid.Unsettled())
	assert.False(t, PaymentStatusRefunded.Unsettled())

	assert.False(t, PaymentMethodCOD.PrepaidOnly())
	assert.True(t, PaymentMethodMpesa.PrepaidOnly())

	_, err := ParsePaymentMethod("cheque")
	assert.Error(t, err)
	status, err := ParsePaymentStatus("refunded")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRefunded, status)
}
