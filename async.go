package go24so

import (
	"context"
)

// Future is the handle for an in-flight asynchronous call. The result is
// set exactly once; Wait and Done may be used from any number of
// goroutines.
type Future[T any] struct {
	value T
	err   error
	done  chan struct{}
}

// newFuture runs fn in its own goroutine and resolves the future with its
// result.
func newFuture[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		f.value, f.err = fn()
		close(f.done)
	}()
	return f
}

// Wait blocks until the call finishes or ctx is done. A ctx expiry only
// abandons this wait; the underlying call keeps running and a later Wait
// can still collect its result.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// AsyncClient is the non-blocking variant. It shares the blocking client's
// pipeline, so the token, cache, rate-limiter and retry behavior are
// identical; only the call shape differs.
type AsyncClient struct {
	client *Client

	Customers         *AsyncCustomersService
	Products          *AsyncProductsService
	ProductCategories *AsyncProductCategoriesService
	Invoices          *AsyncInvoicesService
}

// NewAsync constructs an AsyncClient with its own underlying Client.
func NewAsync(clientID, clientSecret, organizationID string, opts ...Option) *AsyncClient {
	return NewAsyncFrom(New(clientID, clientSecret, organizationID, opts...))
}

// NewAsyncFrom wraps an existing Client so both call shapes share one
// pipeline and its state.
func NewAsyncFrom(client *Client) *AsyncClient {
	a := &AsyncClient{client: client}
	a.Customers = &AsyncCustomersService{service: client.Customers}
	a.Products = &AsyncProductsService{service: client.Products}
	a.ProductCategories = &AsyncProductCategoriesService{service: client.ProductCategories}
	a.Invoices = &AsyncInvoicesService{service: client.Invoices}
	return a
}

// Client returns the underlying blocking client.
func (a *AsyncClient) Client() *Client {
	return a.client
}

// IsValid reports whether configuration validation passed at construction.
func (a *AsyncClient) IsValid() bool {
	return a.client.IsValid()
}

// ValidationError returns the configuration validation error, if any.
func (a *AsyncClient) ValidationError() error {
	return a.client.ValidationError()
}

// Execute runs a descriptor through the pipeline without blocking the
// caller.
func (a *AsyncClient) Execute(ctx context.Context, desc *RequestDescriptor) *Future[*Response] {
	return newFuture(func() (*Response, error) {
		return a.client.Execute(ctx, desc)
	})
}

// SendBatch posts a batch without blocking the caller.
func (a *AsyncClient) SendBatch(ctx context.Context, batch *BatchRequest) *Future[*BatchResponse] {
	return newFuture(func() (*BatchResponse, error) {
		return a.client.SendBatch(ctx, batch)
	})
}

// Close closes the shared underlying client. In-flight futures resolve
// with ErrClientClosed where they had not yet entered the pipeline.
func (a *AsyncClient) Close() {
	a.client.Close()
}

// AsyncCustomersService mirrors CustomersService with future results.
type AsyncCustomersService struct {
	service *CustomersService
}

func (s *AsyncCustomersService) List(ctx context.Context, opts *CustomerListOptions) *Future[[]Customer] {
	return newFuture(func() ([]Customer, error) { return s.service.List(ctx, opts) })
}

func (s *AsyncCustomersService) Get(ctx context.Context, id string) *Future[*Customer] {
	return newFuture(func() (*Customer, error) { return s.service.Get(ctx, id) })
}

func (s *AsyncCustomersService) Create(ctx context.Context, in *CustomerCreate) *Future[*Customer] {
	return newFuture(func() (*Customer, error) { return s.service.Create(ctx, in) })
}

func (s *AsyncCustomersService) Update(ctx context.Context, id string, in *CustomerUpdate) *Future[*Customer] {
	return newFuture(func() (*Customer, error) { return s.service.Update(ctx, id, in) })
}

func (s *AsyncCustomersService) Delete(ctx context.Context, id string) *Future[struct{}] {
	return newFuture(func() (struct{}, error) { return struct{}{}, s.service.Delete(ctx, id) })
}

func (s *AsyncCustomersService) BatchGet(ctx context.Context, ids []string) *Future[map[string]*Customer] {
	return newFuture(func() (map[string]*Customer, error) { return s.service.BatchGet(ctx, ids) })
}

// AsyncProductsService mirrors ProductsService with future results.
type AsyncProductsService struct {
	service *ProductsService
}

func (s *AsyncProductsService) List(ctx context.Context, opts *ProductListOptions) *Future[[]Product] {
	return newFuture(func() ([]Product, error) { return s.service.List(ctx, opts) })
}

func (s *AsyncProductsService) Get(ctx context.Context, id string) *Future[*Product] {
	return newFuture(func() (*Product, error) { return s.service.Get(ctx, id) })
}

func (s *AsyncProductsService) Create(ctx context.Context, in *ProductCreate) *Future[*Product] {
	return newFuture(func() (*Product, error) { return s.service.Create(ctx, in) })
}

func (s *AsyncProductsService) Update(ctx context.Context, id string, in *ProductUpdate) *Future[*Product] {
	return newFuture(func() (*Product, error) { return s.service.Update(ctx, id, in) })
}

func (s *AsyncProductsService) Delete(ctx context.Context, id string) *Future[struct{}] {
	return newFuture(func() (struct{}, error) { return struct{}{}, s.service.Delete(ctx, id) })
}

func (s *AsyncProductsService) BatchGet(ctx context.Context, ids []string) *Future[map[string]*Product] {
	return newFuture(func() (map[string]*Product, error) { return s.service.BatchGet(ctx, ids) })
}

// AsyncProductCategoriesService mirrors ProductCategoriesService with
// future results.
type AsyncProductCategoriesService struct {
	service *ProductCategoriesService
}

func (s *AsyncProductCategoriesService) List(ctx context.Context, opts *ProductCategoryListOptions) *Future[[]ProductCategory] {
	return newFuture(func() ([]ProductCategory, error) { return s.service.List(ctx, opts) })
}

func (s *AsyncProductCategoriesService) Get(ctx context.Context, id string) *Future[*ProductCategory] {
	return newFuture(func() (*ProductCategory, error) { return s.service.Get(ctx, id) })
}

func (s *AsyncProductCategoriesService) Create(ctx context.Context, in *ProductCategoryCreate) *Future[*ProductCategory] {
	return newFuture(func() (*ProductCategory, error) { return s.service.Create(ctx, in) })
}

func (s *AsyncProductCategoriesService) Update(ctx context.Context, id string, in *ProductCategoryUpdate) *Future[*ProductCategory] {
	return newFuture(func() (*ProductCategory, error) { return s.service.Update(ctx, id, in) })
}

func (s *AsyncProductCategoriesService) Delete(ctx context.Context, id string) *Future[struct{}] {
	return newFuture(func() (struct{}, error) { return struct{}{}, s.service.Delete(ctx, id) })
}

func (s *AsyncProductCategoriesService) BatchGet(ctx context.Context, ids []string) *Future[map[string]*ProductCategory] {
	return newFuture(func() (map[string]*ProductCategory, error) { return s.service.BatchGet(ctx, ids) })
}

// AsyncInvoicesService mirrors InvoicesService with future results.
type AsyncInvoicesService struct {
	service *InvoicesService
}

func (s *AsyncInvoicesService) List(ctx context.Context, opts *InvoiceListOptions) *Future[[]Invoice] {
	return newFuture(func() ([]Invoice, error) { return s.service.List(ctx, opts) })
}

func (s *AsyncInvoicesService) Get(ctx context.Context, id string) *Future[*Invoice] {
	return newFuture(func() (*Invoice, error) { return s.service.Get(ctx, id) })
}

func (s *AsyncInvoicesService) Create(ctx context.Context, in *InvoiceCreate) *Future[*Invoice] {
	return newFuture(func() (*Invoice, error) { return s.service.Create(ctx, in) })
}

func (s *AsyncInvoicesService) Update(ctx context.Context, id string, in *InvoiceUpdate) *Future[*Invoice] {
	return newFuture(func() (*Invoice, error) { return s.service.Update(ctx, id, in) })
}

func (s *AsyncInvoicesService) Delete(ctx context.Context, id string) *Future[struct{}] {
	return newFuture(func() (struct{}, error) { return struct{}{}, s.service.Delete(ctx, id) })
}

func (s *AsyncInvoicesService) Send(ctx context.Context, id string) *Future[*Invoice] {
	return newFuture(func() (*Invoice, error) { return s.service.Send(ctx, id) })
}

func (s *AsyncInvoicesService) MarkAsPaid(ctx context.Context, id, paymentDate string) *Future[*Invoice] {
	return newFuture(func() (*Invoice, error) { return s.service.MarkAsPaid(ctx, id, paymentDate) })
}

func (s *AsyncInvoicesService) CreateCreditNote(ctx context.Context, id string) *Future[*Invoice] {
	return newFuture(func() (*Invoice, error) { return s.service.CreateCreditNote(ctx, id) })
}

func (s *AsyncInvoicesService) BatchGet(ctx context.Context, ids []string) *Future[map[string]*Invoice] {
	return newFuture(func() (map[string]*Invoice, error) { return s.service.BatchGet(ctx, ids) })
}
