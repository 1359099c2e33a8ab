package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/internal/invoices"
	"github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/internal/stockrequests"
	"github.com/angelmondragon/giftops-backend/internal/users"
)

var OrderTable = Table[orders.OrderDTO]{
	{"Order Number", func(o orders.OrderDTO) string { return strconv.FormatInt(o.OrderNumber, 10) }},
	{"Created At", func(o orders.OrderDTO) string { return stamp(&o.CreatedAt) }},
	{"Customer", func(o orders.OrderDTO) string { return o.CustomerName }},
	{"Email", func(o orders.OrderDTO) string { return o.CustomerEmail }},
	{"Phone", func(o orders.OrderDTO) string { return str(o.CustomerPhone) }},
	{"Status", func(o orders.OrderDTO) string { return string(o.Status) }},
	{"Payment Status", func(o orders.OrderDTO) string { return string(o.PaymentStatus) }},
	{"Payment Method", func(o orders.OrderDTO) string { return string(o.PaymentMethod) }},
	{"Items", func(o orders.OrderDTO) string {
		parts := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			parts = append(parts, item.ProductName+" x"+strconv.Itoa(item.Quantity))
		}
		return strings.Join(parts, "; ")
	}},
	{"Town", func(o orders.OrderDTO) string { return o.ShippingAddress.Town }},
	{"County", func(o orders.OrderDTO) string { return o.ShippingAddress.County }},
	{"Rider", func(o orders.OrderDTO) string { return str(o.RiderName) }},
	{"Sub Total", func(o orders.OrderDTO) string { return money(o.SubTotal) }},
	{"Shipping", func(o orders.OrderDTO) string { return money(o.ShippingCost) }},
	{"Total", func(o orders.OrderDTO) string { return money(o.Total) }},
}

var StockRequestTable = Table[stockrequests.StockRequestDTO]{
	{"ID", func(r stockrequests.StockRequestDTO) string { return r.ID.String() }},
	{"Created At", func(r stockrequests.StockRequestDTO) string { return stamp(&r.CreatedAt) }},
	{"Product", func(r stockrequests.StockRequestDTO) string { return r.ProductName }},
	{"Requested", func(r stockrequests.StockRequestDTO) string { return strconv.Itoa(r.RequestedQuantity) }},
	{"Status", func(r stockrequests.StockRequestDTO) string { return string(r.Status) }},
	{"Bids", func(r stockrequests.StockRequestDTO) string { return strconv.Itoa(len(r.Bids)) }},
	{"Supplier", func(r stockrequests.StockRequestDTO) string { return id(r.SupplierID) }},
	{"Unit Price", func(r stockrequests.StockRequestDTO) string { return moneyPtr(r.SupplierPrice) }},
	{"Fulfilled", func(r stockrequests.StockRequestDTO) string { return intPtr(r.FulfilledQuantity) }},
	{"Received", func(r stockrequests.StockRequestDTO) string { return intPtr(r.ReceivedQuantity) }},
	{"Discrepancy", func(r stockrequests.StockRequestDTO) string { return intPtr(r.Discrepancy) }},
}

var InvoiceTable = Table[invoices.InvoiceDTO]{
	{"Invoice Number", func(i invoices.InvoiceDTO) string { return i.InvoiceNumber }},
	{"Created At", func(i invoices.InvoiceDTO) string { return stamp(&i.CreatedAt) }},
	{"Supplier", func(i invoices.InvoiceDTO) string { return i.SupplierID.String() }},
	{"Stock Request", func(i invoices.InvoiceDTO) string { return id(i.StockRequestID) }},
	{"Status", func(i invoices.InvoiceDTO) string { return string(i.Status) }},
	{"Sub Total", func(i invoices.InvoiceDTO) string { return money(i.SubTotal) }},
	{"Tax Rate", func(i invoices.InvoiceDTO) string { return i.TaxRate.StringFixed(2) }},
	{"Tax", func(i invoices.InvoiceDTO) string { return money(i.TaxAmount) }},
	{"Total", func(i invoices.InvoiceDTO) string { return money(i.TotalAmount) }},
	{"Due Date", func(i invoices.InvoiceDTO) string { return stamp(i.DueDate) }},
}

var UserTable = Table[users.UserDTO]{
	{"ID", func(u users.UserDTO) string { return u.ID.String() }},
	{"Email", func(u users.UserDTO) string { return u.Email }},
	{"Name", func(u users.UserDTO) string { return u.DisplayName }},
	{"Phone", func(u users.UserDTO) string { return str(u.Phone) }},
	{"Role", func(u users.UserDTO) string { return string(u.Role) }},
	{"Status", func(u users.UserDTO) string { return string(u.Status) }},
	{"Disabled", func(u users.UserDTO) string { return strconv.FormatBool(u.Disabled) }},
	{"Last Login", func(u users.UserDTO) string { return stamp(u.LastLoginAt) }},
	{"Created At", func(u users.UserDTO) string { return stamp(&u.CreatedAt) }},
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func id(v *uuid.UUID) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func intPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func moneyPtr(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return money(*d)
}

func stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
