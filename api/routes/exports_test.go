package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftops-backend/api/controllers"
	"github.com/angelmondragon/giftops-backend/api/middleware"
	"github.com/angelmondragon/giftops-backend/internal/invoices"
	"github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/internal/stockrequests"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type stubOrders struct{ orders.Service }

func (stubOrders) List(context.Context, types.Actor, orders.ListParams) (*pagination.Page[orders.OrderDTO], error) {
	return &pagination.Page[orders.OrderDTO]{}, nil
}

type stubStockRequests struct{ stockrequests.Service }

func (stubStockRequests) List(context.Context, types.Actor, stockrequests.ListParams) (*pagination.Page[stockrequests.StockRequestDTO], error) {
	return &pagination.Page[stockrequests.StockRequestDTO]{}, nil
}

type stubInvoices struct{ invoices.Service }

func (stubInvoices) List(context.Context, types.Actor, invoices.ListParams) (*pagination.Page[invoices.InvoiceDTO], error) {
	return &pagination.Page[invoices.InvoiceDTO]{}, nil
}

func newExportRouter(t *testing.T) func(path string, role enums.Role) *httptest.ResponseRecorder {
	t.Helper()
	cfg := testConfig()
	router := NewRouter(Dependencies{
		Config:        cfg,
		Logger:        logger.Discard(),
		Sessions:      stubSessions{},
		Health:        map[string]controllers.Pinger{},
		Users:         &stubUsers{},
		Orders:        stubOrders{},
		StockRequests: stubStockRequests{},
		Invoices:      stubInvoices{},
	})
	get := func(path string, role enums.Role) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", bearer(t, cfg, role))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}
	return get
}

func TestExportsAllowedPerRole(t *testing.T) {
	get := newExportRouter(t)

	cases := []struct {
		path string
		role enums.Role
	}{
		{"/api/finance/exports/orders.csv", enums.RoleFinanceManager},
		{"/api/dispatch/exports/orders.csv", enums.RoleDispatchManager},
		{"/api/finance/exports/stock-requests.csv", enums.RoleFinanceManager},
		{"/api/inventory/exports/stock-requests.csv", enums.RoleInventoryManager},
		{"/api/finance/exports/invoices.csv", enums.RoleFinanceManager},
		{"/api/finance/exports/orders.csv", enums.RoleAdmin},
		{"/api/admin/exports/orders.csv", enums.RoleAdmin},
		{"/api/admin/exports/users.csv", enums.RoleAdmin},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+tc.path, func(t *testing.T) {
			resp := get(tc.path, tc.role)
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
			assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "text/csv"))
			assert.True(t, strings.HasPrefix(resp.Body.String(), "\xEF\xBB\xBF"))
		})
	}
}

func TestExportsRejectOtherRoles(t *testing.T) {
	get := newExportRouter(t)

	cases := []struct {
		path string
		role enums.Role
	}{
		{"/api/dispatch/exports/orders.csv", enums.RoleFinanceManager},
		{"/api/finance/exports/invoices.csv", enums.RoleInventoryManager},
		{"/api/finance/exports/invoices.csv", enums.RoleDispatchManager},
		{"/api/inventory/exports/stock-requests.csv", enums.RoleDispatchManager},
		{"/api/admin/exports/users.csv", enums.RoleFinanceManager},
		{"/api/finance/exports/orders.csv", enums.RoleCustomer},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+tc.path, func(t *testing.T) {
			resp := get(tc.path, tc.role)
			assert.Equal(t, http.StatusForbidden, resp.Code)
			assert.Equal(t, middleware.DashboardPath, resp.Header().Get("Location"))
		})
	}
}
