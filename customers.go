package go24so

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

const customersPath = "/customers"

// Address is a postal address attached to a customer. Type distinguishes
// shipping from billing addresses.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Type       string `json:"type,omitempty"`
}

// Contact is a contact person attached to a customer.
type Contact struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty"`
	Position  string `json:"position,omitempty"`
}

// Customer is a customer record as returned by the API.
type Customer struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Website        string         `json:"website,omitempty"`
	TaxID          string         `json:"tax_id,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CustomerNumber string         `json:"customer_number,omitempty"`
	Currency       string         `json:"currency,omitempty"`
	PaymentTerms   int            `json:"payment_terms,omitempty"`
	Addresses      []Address      `json:"addresses,omitempty"`
	Contacts       []Contact      `json:"contacts,omitempty"`
	CustomFields   map[string]any `json:"custom_fields,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	IsActive       bool           `json:"is_active"`
}

// CustomerCreate is the payload for creating a customer. Name is the only
// required field.
type CustomerCreate struct {
	Name           string         `json:"name" validate:"required"`
	Email          string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string         `json:"phone,omitempty"`
	Website        string         `json:"website,omitempty" validate:"omitempty,url"`
	TaxID          string         `json:"tax_id,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CustomerNumber string         `json:"customer_number,omitempty"`
	Currency       string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentTerms   int            `json:"payment_terms,omitempty" validate:"omitempty,min=0"`
	Addresses      []Address      `json:"addresses,omitempty"`
	Contacts       []Contact      `json:"contacts,omitempty" validate:"omitempty,dive"`
	CustomFields   map[string]any `json:"custom_fields,omitempty"`
}

// CustomerUpdate is the payload for a partial customer update. Zero fields
// are left unchanged on the server.
type CustomerUpdate struct {
	Name         string         `json:"name,omitempty"`
	Email        string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string         `json:"phone,omitempty"`
	Website      string         `json:"website,omitempty" validate:"omitempty,url"`
	TaxID        string         `json:"tax_id,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	Currency     string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentTerms int            `json:"payment_terms,omitempty" validate:"omitempty,min=0"`
	Addresses    []Address      `json:"addresses,omitempty"`
	Contacts     []Contact      `json:"contacts,omitempty" validate:"omitempty,dive"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// CustomerListOptions narrows a customer listing.
type CustomerListOptions struct {
	Page     int
	PageSize int
	Search   string
}

func (o *CustomerListOptions) apply(desc *RequestDescriptor) {
	page, pageSize := 1, 50
	if o != nil {
		if o.Page > 0 {
			page = o.Page
		}
		if o.PageSize > 0 {
			pageSize = o.PageSize
		}
		if o.Search != "" {
			desc.WithQuery("search", o.Search)
		}
	}
	desc.WithQuery("page", strconv.Itoa(page))
	desc.WithQuery("pageSize", strconv.Itoa(pageSize))
}

// CustomersService provides the typed customer operations.
type CustomersService struct {
	client *Client
}

// List returns a page of customers. A nil opts lists the first page with
// the default page size.
func (s *CustomersService) List(ctx context.Context, opts *CustomerListOptions) ([]Customer, error) {
	desc := NewDescriptor(http.MethodGet, customersPath)
	opts.apply(desc)
	resp, err := s.client.Execute(ctx, desc)
	if err != nil {
		return nil, err
	}
	return decodeList[Customer](resp)
}

// Get fetches one customer by ID.
func (s *CustomersService) Get(ctx context.Context, id string) (*Customer, error) {
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodGet, customersPath+"/"+id))
	if err != nil {
		return nil, err
	}
	return decodeInto[Customer](resp)
}

// Create validates the payload locally and creates a customer.
func (s *CustomersService) Create(ctx context.Context, in *CustomerCreate) (*Customer, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPost, customersPath).WithBody(in))
	if err != nil {
		return nil, err
	}
	return decodeInto[Customer](resp)
}

// Update applies a partial update to a customer.
func (s *CustomersService) Update(ctx context.Context, id string, in *CustomerUpdate) (*Customer, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPatch, customersPath+"/"+id).WithBody(in))
	if err != nil {
		return nil, err
	}
	return decodeInto[Customer](resp)
}

// Delete removes a customer.
func (s *CustomersService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Execute(ctx, NewDescriptor(http.MethodDelete, customersPath+"/"+id))
	return err
}

// BatchGet fetches several customers in one round trip. IDs that fail are
// simply absent from the result.
func (s *CustomersService) BatchGet(ctx context.Context, ids []string) (map[string]*Customer, error) {
	return batchGetByID[Customer](ctx, s.client, customersPath, ids)
}
