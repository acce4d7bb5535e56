package go24so

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoicesListFilters(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SENT", r.URL.Query().Get("status"))
		assert.Equal(t, "42", r.URL.Query().Get("customerId"))
		jsonResponse(w, http.StatusOK, `[{"id":"1","invoice_number":"INV-1","customer_id":"42","status":"SENT"}]`)
	})
	client := backend.client(t)

	invoices, err := client.Invoices.List(context.Background(), &InvoiceListOptions{
		Status:     InvoiceStatusSent,
		CustomerID: "42",
	})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, InvoiceStatusSent, invoices[0].Status)
}

func TestInvoicesCreate(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var body InvoiceCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.LineItems, 1)
		assert.Equal(t, "Consulting", body.LineItems[0].Description)
		jsonResponse(w, http.StatusCreated, `{
			"id":"9","invoice_number":"INV-9","customer_id":"42","status":"DRAFT",
			"totals":{"subtotal":100,"vat_amount":25,"total":125}
		}`)
	})
	client := backend.client(t)

	invoice, err := client.Invoices.Create(context.Background(), &InvoiceCreate{
		CustomerID: "42",
		LineItems: []InvoiceLineItem{
			{Description: "Consulting", Quantity: 2, UnitPrice: 50},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-9", invoice.InvoiceNumber)
	assert.Equal(t, 125.0, invoice.Totals.Total)
}

func TestInvoicesCreateValidation(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid payload must not reach the network")
	})
	client := backend.client(t)
	ctx := context.Background()

	var apiErr *APIError

	// Missing customer.
	_, err := client.Invoices.Create(ctx, &InvoiceCreate{
		LineItems: []InvoiceLineItem{{Description: "x", Quantity: 1}},
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)

	// No line items.
	_, err = client.Invoices.Create(ctx, &InvoiceCreate{CustomerID: "42"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)

	// Zero quantity on a line.
	_, err = client.Invoices.Create(ctx, &InvoiceCreate{
		CustomerID: "42",
		LineItems:  []InvoiceLineItem{{Description: "x", Quantity: 0}},
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)

	// Malformed date.
	_, err = client.Invoices.Create(ctx, &InvoiceCreate{
		CustomerID:  "42",
		InvoiceDate: "23/08/2026",
		LineItems:   []InvoiceLineItem{{Description: "x", Quantity: 1}},
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
}

func TestInvoicesSend(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/invoices/9/send", r.URL.Path)
		jsonResponse(w, http.StatusOK, `{"id":"9","invoice_number":"INV-9","status":"SENT"}`)
	})
	client := backend.client(t)

	invoice, err := client.Invoices.Send(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusSent, invoice.Status)
}

func TestInvoicesMarkAsPaid(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoices/9/mark-paid", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-08-20", body["paymentDate"])
		jsonResponse(w, http.StatusOK, `{"id":"9","status":"PAID","payment_date":"2026-08-20"}`)
	})
	client := backend.client(t)

	invoice, err := client.Invoices.MarkAsPaid(context.Background(), "9", "2026-08-20")
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, invoice.Status)
	assert.Equal(t, "2026-08-20", invoice.PaymentDate)
}

func TestInvoicesCreateCreditNote(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoices/9/credit", r.URL.Path)
		jsonResponse(w, http.StatusCreated, `{"id":"10","status":"DRAFT","is_credit_note":true,"credited_invoice_id":"9"}`)
	})
	client := backend.client(t)

	credit, err := client.Invoices.CreateCreditNote(context.Background(), "9")
	require.NoError(t, err)
	assert.True(t, credit.IsCreditNote)
	assert.Equal(t, "9", credit.CreditedInvoiceID)
}

func TestInvoiceWritesInvalidateInvoiceCache(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{"id":"9","status":"SENT"}`)
	})
	client := backend.client(t)
	ctx := context.Background()

	_, err := client.Invoices.Get(ctx, "9")
	require.NoError(t, err)

	_, err = client.Invoices.Send(ctx, "9")
	require.NoError(t, err)

	before := backend.apiRequests.Load()
	_, err = client.Invoices.Get(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, before+1, backend.apiRequests.Load(), "Send should invalidate cached invoice reads")
}
