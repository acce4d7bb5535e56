package go24so

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

const productsPath = "/products"

// PriceInfo carries a product's sales price.
type PriceInfo struct {
	Price    float64 `json:"price" validate:"min=0"`
	Currency string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	VATRate  float64 `json:"vat_rate,omitempty"`
	Discount float64 `json:"discount,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// StockInfo carries a product's inventory state.
type StockInfo struct {
	Quantity     int    `json:"quantity"`
	ReorderPoint int    `json:"reorder_point,omitempty"`
	Location     string `json:"location,omitempty"`
}

// Product is a product record as returned by the API.
type Product struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	SKU          string         `json:"sku,omitempty"`
	Barcode      string         `json:"barcode,omitempty"`
	Category     string         `json:"category,omitempty"`
	Brand        string         `json:"brand,omitempty"`
	PriceInfo    *PriceInfo     `json:"price_info,omitempty"`
	StockInfo    *StockInfo     `json:"stock_info,omitempty"`
	TaxCode      string         `json:"tax_code,omitempty"`
	IsService    bool           `json:"is_service"`
	IsActive     bool           `json:"is_active"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ProductCreate is the payload for creating a product.
type ProductCreate struct {
	Name         string         `json:"name" validate:"required"`
	Description  string         `json:"description,omitempty"`
	SKU          string         `json:"sku,omitempty"`
	Barcode      string         `json:"barcode,omitempty"`
	Category     string         `json:"category,omitempty"`
	Brand        string         `json:"brand,omitempty"`
	PriceInfo    *PriceInfo     `json:"price_info,omitempty" validate:"omitempty"`
	StockInfo    *StockInfo     `json:"stock_info,omitempty"`
	TaxCode      string         `json:"tax_code,omitempty"`
	IsService    bool           `json:"is_service,omitempty"`
	IsActive     bool           `json:"is_active,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// ProductUpdate is the payload for a partial product update.
type ProductUpdate struct {
	Name         string         `json:"name,omitempty"`
	Description  string         `json:"description,omitempty"`
	SKU          string         `json:"sku,omitempty"`
	Barcode      string         `json:"barcode,omitempty"`
	Category     string         `json:"category,omitempty"`
	Brand        string         `json:"brand,omitempty"`
	PriceInfo    *PriceInfo     `json:"price_info,omitempty" validate:"omitempty"`
	StockInfo    *StockInfo     `json:"stock_info,omitempty"`
	TaxCode      string         `json:"tax_code,omitempty"`
	IsService    *bool          `json:"is_service,omitempty"`
	IsActive     *bool          `json:"is_active,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// ProductListOptions narrows a product listing.
type ProductListOptions struct {
	Page     int
	PageSize int
	Search   string
	Category string
}

func (o *ProductListOptions) apply(desc *RequestDescriptor) {
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
		if o.Category != "" {
			desc.WithQuery("category", o.Category)
		}
	}
	desc.WithQuery("page", strconv.Itoa(page))
	desc.WithQuery("pageSize", strconv.Itoa(pageSize))
}

// ProductsService provides the typed product operations.
type ProductsService struct {
	client *Client
}

// List returns a page of products.
func (s *ProductsService) List(ctx context.Context, opts *ProductListOptions) ([]Product, error) {
	desc := NewDescriptor(http.MethodGet, productsPath)
	opts.apply(desc)
	resp, err := s.client.Execute(ctx, desc)
	if err != nil {
		return nil, err
	}
	return decodeList[Product](resp)
}

// Get fetches one product by ID.
func (s *ProductsService) Get(ctx context.Context, id string) (*Product, error) {
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodGet, productsPath+"/"+id))
	if err != nil {
		return nil, err
	}
	return decodeInto[Product](resp)
}

// Create validates the payload locally and creates a product.
func (s *ProductsService) Create(ctx context.Context, in *ProductCreate) (*Product, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPost, productsPath).WithBody(in))
	if err != nil {
		return nil, err
	}
	return decodeInto[Product](resp)
}

// Update applies a partial update to a product.
func (s *ProductsService) Update(ctx context.Context, id string, in *ProductUpdate) (*Product, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPatch, productsPath+"/"+id).WithBody(in))
	if err != nil {
		return nil, err
	}
	return decodeInto[Product](resp)
}

// Delete removes a product.
func (s *ProductsService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Execute(ctx, NewDescriptor(http.MethodDelete, productsPath+"/"+id))
	return err
}

// BatchGet fetches several products in one round trip.
func (s *ProductsService) BatchGet(ctx context.Context, ids []string) (map[string]*Product, error) {
	return batchGetByID[Product](ctx, s.client, productsPath, ids)
}
