package go24so

import (
	"context"
	"net/http"
	"strconv"
)

const productCategoriesPath = "/productcategories"

// ProductCategory is a node in the product category tree. ParentID "0"
// marks a top-level category.
type ProductCategory struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	ParentID             string `json:"parentId,omitempty"`
	AlternativeReference string `json:"alternativeReference,omitempty"`
	ModifiedAt           string `json:"modifiedAt,omitempty"`
}

// ProductCategoryCreate is the payload for creating a product category.
type ProductCategoryCreate struct {
	Name                 string `json:"name" validate:"required"`
	ParentID             string `json:"parentId,omitempty"`
	AlternativeReference string `json:"alternativeReference,omitempty"`
}

// ProductCategoryUpdate is the payload for a partial category update.
type ProductCategoryUpdate struct {
	Name                 string `json:"name,omitempty"`
	ParentID             string `json:"parentId,omitempty"`
	AlternativeReference string `json:"alternativeReference,omitempty"`
}

// ProductCategoryListOptions narrows a category listing.
type ProductCategoryListOptions struct {
	Page     int
	PageSize int
}

func (o *ProductCategoryListOptions) apply(desc *RequestDescriptor) {
	page, pageSize := 1, 50
	if o != nil {
		if o.Page > 0 {
			page = o.Page
		}
		if o.PageSize > 0 {
			pageSize = o.PageSize
		}
	}
	desc.WithQuery("page", strconv.Itoa(page))
	desc.WithQuery("pageSize", strconv.Itoa(pageSize))
}

// ProductCategoriesService provides the typed product category operations.
type ProductCategoriesService struct {
	client *Client
}

// List returns a page of product categories.
func (s *ProductCategoriesService) List(ctx context.Context, opts *ProductCategoryListOptions) ([]ProductCategory, error) {
	desc := NewDescriptor(http.MethodGet, productCategoriesPath)
	opts.apply(desc)
	resp, err := s.client.Execute(ctx, desc)
	if err != nil {
		return nil, err
	}
	return decodeList[ProductCategory](resp)
}

// Get fetches one product category by ID.
func (s *ProductCategoriesService) Get(ctx context.Context, id string) (*ProductCategory, error) {
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodGet, productCategoriesPath+"/"+id))
	if err != nil {
		return nil, err
	}
	return decodeInto[ProductCategory](resp)
}

// Create validates the payload locally and creates a product category.
func (s *ProductCategoriesService) Create(ctx context.Context, in *ProductCategoryCreate) (*ProductCategory, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPost, productCategoriesPath).WithBody(in))
	if err != nil {
		return nil, err
	}
	return decodeInto[ProductCategory](resp)
}

// Update applies a partial update to a product category.
func (s *ProductCategoriesService) Update(ctx context.Context, id string, in *ProductCategoryUpdate) (*ProductCategory, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	resp, err := s.client.Execute(ctx, NewDescriptor(http.MethodPatch, productCategoriesPath+"/"+id).WithBody(in))
	if err != nil {
		return nil, err
	}
	return decodeInto[ProductCategory](resp)
}

// Delete removes a product category.
func (s *ProductCategoriesService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Execute(ctx, NewDescriptor(http.MethodDelete, productCategoriesPath+"/"+id))
	return err
}

// BatchGet fetches several product categories in one round trip.
func (s *ProductCategoriesService) BatchGet(ctx context.Context, ids []string) (map[string]*ProductCategory, error) {
	return batchGetByID[ProductCategory](ctx, s.client, productCategoriesPath, ids)
}
