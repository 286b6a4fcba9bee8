package product

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/ecotrade/pkg/api"
	"github.com/rhuss/ecotrade/pkg/auth"
	"github.com/rhuss/ecotrade/pkg/debug"
	"github.com/rhuss/ecotrade/pkg/observability"
	"github.com/rhuss/ecotrade/pkg/storage"
)

// Service implements the product operations.
type Service struct {
	products Store
	owners   OwnerStore
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(products Store, owners OwnerStore, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		products: products,
		owners:   owners,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Create stores a new product owned by ownerID.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, req api.ProductRequest, ownerID uuid.UUID) (p *api.Product, err error) {
	defer func() { record("create", err) }()

	if apiErr := api.ValidateProductRequest(&req); apiErr != nil {
		return nil, apiErr
	}

	owner, err := s.owners.GetUser(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.config.EnforceOwnership {
		if err := auth.Authorize(caller, owner.Email, owner.ExternalID); err != nil {
			return nil, err
		}
	}

	p = &api.Product{
		Name:        strings.TrimSpace(req.Name),
		Price:       api.RoundPrice(*req.Price),
		Description: req.Description,
		UseTime:     strings.TrimSpace(req.UseTime),
		OwnerID:     owner.ID,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.products.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, storage.ErrReferenceNotFound) {
			// Owner deleted between the lookup and the insert.
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}

	s.logger.Info("product created", "product_id", p.ID, "owner_id", p.OwnerID)
	return p, nil
}

// Get returns the product with the given id. Reads are public.
func (s *Service) Get(ctx context.Context, id int64) (*api.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return p, nil
}

// List returns all products.
func (s *Service) List(ctx context.Context) ([]*api.Product, error) {
	return s.products.ListProducts(ctx)
}

// ListByOwner returns the products owned by ownerID. An unknown owner simply
// has no products.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*api.Product, error) {
	return s.products.ListProductsByOwner(ctx, ownerID)
}

// Update overwrites the content fields of a product. The id, owner, and
// creation time are never changed.
func (s *Service) Update(ctx context.Context, caller *auth.Identity, id int64, req api.ProductRequest) (p *api.Product, err error) {
	defer func() { record("update", err) }()

	p, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, p); err != nil {
		return nil, err
	}
	if apiErr := api.ValidateProductRequest(&req); apiErr != nil {
		return nil, apiErr
	}

	p.Name = strings.TrimSpace(req.Name)
	p.Price = api.RoundPrice(*req.Price)
	p.Description = req.Description
	p.UseTime = strings.TrimSpace(req.UseTime)

	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, mapNotFound(err)
	}
	return p, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, caller *auth.Identity, id int64) (err error) {
	defer func() { record("delete", err) }()

	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, caller, p); err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return mapNotFound(err)
	}

	s.logger.Info("product deleted", "product_id", id, "owner_id", p.OwnerID)
	return nil
}

// Views returns the public views of ps, resolving each owner's display name
// once. Owners that cannot be resolved leave the name empty.
func (s *Service) Views(ctx context.Context, ps ...*api.Product) []*api.ProductResponse {
	names := make(map[uuid.UUID]string)
	views := make([]*api.ProductResponse, 0, len(ps))
	for _, p := range ps {
		name, ok := names[p.OwnerID]
		if !ok {
			owner, err := s.owners.GetUser(ctx, p.OwnerID)
			switch {
			case err == nil:
				name = owner.DisplayName
			case errors.Is(err, storage.ErrNotFound):
				debug.Log("products", "product owner not found", "owner_id", p.OwnerID)
			default:
				s.logger.Warn("resolving product owner failed", "owner_id", p.OwnerID, "error", err)
			}
			names[p.OwnerID] = name
		}
		views = append(views, api.NewProductResponse(p, name))
	}
	return views
}

// authorize checks that caller owns p when ownership is enforced.
func (s *Service) authorize(ctx context.Context, caller *auth.Identity, p *api.Product) error {
	if !s.config.EnforceOwnership {
		return nil
	}
	if !caller.Authenticated() {
		return auth.ErrUnauthenticated
	}

	owner, err := s.owners.GetUser(ctx, p.OwnerID)
	if errors.Is(err, storage.ErrNotFound) {
		return auth.ErrForbidden
	}
	if err != nil {
		return err
	}
	return auth.Authorize(caller, owner.Email, owner.ExternalID)
}

// mapNotFound translates storage.ErrNotFound into ErrProductNotFound.
func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}

// record counts a product mutation by its outcome.
func record(operation string, err error) {
	outcome := "success"
	var apiErr *api.APIError
	switch {
	case err == nil:
	case errors.Is(err, ErrProductNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrOwnerNotFound):
		outcome = "owner_not_found"
	case errors.Is(err, auth.ErrUnauthenticated):
		outcome = "unauthenticated"
	case errors.Is(err, auth.ErrForbidden):
		outcome = "forbidden"
	case errors.As(err, &apiErr):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	observability.ProductOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
