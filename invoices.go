package go24so

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

const invoicesPath = "/invoices"

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
	InvoiceStatusCredited  InvoiceStatus = "CREDITED"
)

// InvoiceLineItem is one billable line on an invoice. LineTotal is computed
// server-side and ignored on writes.
type InvoiceLineItem struct {
	Description  string         `json:"description" validate:"required"`
	Quantity     float64        `json:"quantity" validate:"gt=0"`
	UnitPrice    float64        `json:"unit_price"`
	VATRate      float64        `json:"vat_rate,omitempty"`
	Discount     float64        `json:"discount,omitempty"`
	ProductID    string         `json:"product_id,omitempty"`
	Unit         string         `json:"unit,omitempty"`
	LineTotal    float64        `json:"line_total,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// InvoiceTotals are the computed monetary totals of an invoice.
type InvoiceTotals struct {
	Subtotal       float64 `json:"subtotal"`
	VATAmount      float64 `json:"vat_amount"`
	DiscountAmount float64 `json:"discount_amount,omitempty"`
	Total          float64 `json:"total"`
}

// Invoice is an invoice record as returned by the API.
type Invoice struct {
	ID                string            `json:"id"`
	InvoiceNumber     string            `json:"invoice_number"`
	CustomerID        string            `json:"customer_id"`
	InvoiceDate       string            `json:"invoice_date"`
	DueDate           string            `json:"due_date,omitempty"`
	LineItems         []InvoiceLineItem `json:"line_items"`
	Notes             string            `json:"notes,omitempty"`
	PaymentTerms      int               `json:"payment_terms,omitempty"`
	Currency          string            `json:"currency,omitempty"`
	Reference         string            `json:"reference,omitempty"`
	Status            InvoiceStatus     `json:"status"`
	Totals            InvoiceTotals     `json:"totals"`
	PaymentDate       string            `json:"payment_date,omitempty"`
	IsCreditNote      bool              `json:"is_credit_note"`
	CreditedInvoiceID string            `json:"credited_invoice_id,omitempty"`
	CustomFields      map[string]any    `json:"custom_fields,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// InvoiceCreate is the payload for creating an invoice. Dates use the
// YYYY-MM-DD form the API expects.
type InvoiceCreate struct {
	CustomerID   string            `json:"customer_id" validate:"required"`
	InvoiceDate  string            `json:"invoice_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate      string            `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	LineItems    []InvoiceLineItem `json:"line_items" validate:"required,min=1,dive"`
	Notes        string            `json:"notes,omitempty"`
	PaymentTerms int               `json:"payment_terms,omitempty" validate:"omitempty,min=0"`
	Currency     string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Reference    string            `json:"reference,omitempty"`
	Status       InvoiceStatus     `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT PAID OVERDUE CANCELLED CREDITED"`
	CustomFields map[string]any    `json:"custom_fields,omitempty"`
}

// InvoiceUpdate is the payload for a partial invoice update.
type InvoiceUpdate struct {
	CustomerID   string            `json:"customer_id,omitempty"`
	InvoiceDate  string            `json:"invoice_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate      string            `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	LineItems    []InvoiceLineItem `json:"line_items,omitempty" validate:"omitempty,min=1,dive"`
	Notes        string            `json:"notes,omitempty"`
	PaymentTerms int               `json:"payment_terms,omitempty" validate:"omitempty,min=0"`
	Currency     string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Reference    string            `json:"reference,omitempty"`
	Status       InvoiceStatus     `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT PAID OVERDUE CANCELLED CREDITED"`
	CustomFields map[string]any    `json:"custom_fields,omitempty"`
}

// InvoiceListOptions narrows an invoice listing.
type InvoiceListOptions struct {
	Page       int
	PageSize   int
	Status     InvoiceStatus
	CustomerID string
}

func (o *InvoiceListOptions) apply(desc *RequestDescriptor) {
	page, pageSize := 1, 50
	if o != nil {
		if o.Page > 0 {
			page = o.Page
		}
		if o.PageSize > 0 {
			pageSize = o.PageSize
		}
		if o.Status != "" {
			desc.WithQuery("status", string(o.Status))
		}
		if o.CustomerID != "" {
			desc.WithQuery("customerId", o.CustomerID)
		}
	}
	desc.WithQuery("page", strconv.Itoa(page))
	desc.WithQuery("pageSize", strconv.Itoa(pageSize))
}

// InvoicesService provides the typed invoice operations.
type InvoicesService struct {
	client *Client
}

// List returns a page of invoices.
func (s *InvoicesService) List(ctx context.Context, opts *InvoiceListOptions) ([]Invoice, error) {
	desc := NewDescriptor(http.MethodGet, invoicesPath)
	opts.apply(desc)
	resp, err := s.client.Execute(ctx, desc)
	if err != nil {
		return nil, err
	}
	return decodeList[Invoice](resp)
}

// Get fetches one invoice by ID.
func (s *InvoicesService) Get(ctx context.Context, id string) (*Invoice, error) {
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodGet, invoicesPath+"/"+id))
	if err != nil {
		return nil, err
	}
	return decodeInto[Invoice](resp)
}

// Create validates the payload locally and creates an invoice.
func (s *InvoicesService) Create(ctx context.Context, in *InvoiceCreate) (*Invoice, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPost, invoicesPath).WithBody(in))
	if err != nil {
		return nil, err
	}
	return decodeInto[Invoice](resp)
}

// Update applies a partial update to an invoice.
func (s *InvoicesService) Update(ctx context.Context, id string, in *InvoiceUpdate) (*Invoice, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPatch, invoicesPath+"/"+id).WithBody(in))
	if err != nil {
		return nil, err
	}
	return decodeInto[Invoice](resp)
}

// Delete removes an invoice.
func (s *InvoicesService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Execute(ctx, NewDescriptor(http.MethodDelete, invoicesPath+"/"+id))
	return err
}

// Send transitions an invoice to SENT and delivers it to the customer.
func (s *InvoicesService) Send(ctx context.Context, id string) (*Invoice, error) {
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPost, invoicesPath+"/"+id+"/send"))
	if err != nil {
		return nil, err
	}
	return decodeInto[Invoice](resp)
}

// MarkAsPaid transitions an invoice to PAID. paymentDate is optional
// YYYY-MM-DD; empty means today on the server.
func (s *InvoicesService) MarkAsPaid(ctx context.Context, id, paymentDate string) (*Invoice, error) {
	body := map[string]string{}
	if paymentDate != "" {
		body["paymentDate"] = paymentDate
	}
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPost, invoicesPath+"/"+id+"/mark-paid").WithBody(body))
	if err != nil {
		return nil, err
	}
	return decodeInto[Invoice](resp)
}

// CreateCreditNote creates a credit note offsetting an invoice and returns
// the new credit note.
func (s *InvoicesService) CreateCreditNote(ctx context.Context, id string) (*Invoice, error) {
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPost, invoicesPath+"/"+id+"/credit"))
	if err != nil {
		return nil, err
	}
	return decodeInto[Invoice](resp)
}

// BatchGet fetches several invoices in one round trip.
func (s *InvoicesService) BatchGet(ctx context.Context, ids []string) (map[string]*Invoice, error) {
	return batchGetByID[Invoice](ctx, s.client, invoicesPath, ids)
}
