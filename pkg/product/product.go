// Package product implements the ownership-scoped product operations.
//
// A product moves through nonexistent, active, and deleted; updates keep it
// active. Creation requires an existing owner. Reads are public. When
// ownership enforcement is on, every mutation also requires the verified
// caller to be the product's owner.
package product

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rhuss/ecotrade/pkg/api"
)

// Store is the product persistence the service needs. Implementations return
// storage.ErrNotFound for missing products and storage.ErrReferenceNotFound
// when a new product names an owner that does not exist.
type Store interface {
	// CreateProduct inserts p and sets p.ID.
	CreateProduct(ctx context.Context, p *api.Product) error

	GetProduct(ctx context.Context, id int64) (*api.Product, error)
	ListProducts(ctx context.Context) ([]*api.Product, error)
	ListProductsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*api.Product, error)

	// UpdateProduct overwrites name, price, description, and use time of the
	// product with p.ID. Last writer wins.
	UpdateProduct(ctx context.Context, p *api.Product) error

	DeleteProduct(ctx context.Context, id int64) error
}

// OwnerStore resolves product owners. It returns storage.ErrNotFound for
// unknown ids.
type OwnerStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*api.User, error)
}

// Sentinel errors.
var (
	// ErrProductNotFound is returned when the product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrOwnerNotFound is returned when a product is created for a user
	// that does not exist.
	ErrOwnerNotFound = errors.New("owner not found")
)

// Config controls service behavior.
type Config struct {
	// EnforceOwnership requires the verified caller to be the owner for
	// create, update, and delete. When false, any caller may mutate any
	// product, and only owner existence is checked on create.
	EnforceOwnership bool
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{EnforceOwnership: true}
}
