// Package memory provides an in-memory store for users and products, used in
// tests and single-process deployments. Data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rhuss/ecotrade/pkg/api"
	"github.com/rhuss/ecotrade/pkg/identity"
	"github.com/rhuss/ecotrade/pkg/product"
	"github.com/rhuss/ecotrade/pkg/storage"
)

// Store keeps users and products in maps guarded by a single mutex, so the
// uniqueness checks in CreateUserIfAbsent and the owner check in
// CreateProduct are atomic with the insert. Records are copied on the way in
// and out; callers never share memory with the store.
type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*api.User
	byEmail       map[string]uuid.UUID
	byExternalID  map[string]uuid.UUID
	products      map[int64]*api.Product
	nextProductID int64
}

// Ensure Store implements both service stores at compile time.
var (
	_ identity.UserStore = (*Store)(nil)
	_ product.Store      = (*Store)(nil)
	_ product.OwnerStore = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*api.User),
		byEmail:       make(map[string]uuid.UUID),
		byExternalID:  make(map[string]uuid.UUID),
		products:      make(map[int64]*api.Product),
		nextProductID: 1,
	}
}

// CreateUserIfAbsent inserts u unless its email or external id is taken.
func (s *Store) CreateUserIfAbsent(_ context.Context, u *api.User) (*api.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if id, ok := s.byEmail[email]; ok {
		return copyUser(s.users[id]), false, nil
	}
	if u.ExternalID != "" {
		if id, ok := s.byExternalID[u.ExternalID]; ok {
			return copyUser(s.users[id]), false, nil
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return nil, false, storage.ErrConflict
	}

	stored := copyUser(u)
	stored.Email = email
	s.users[stored.ID] = stored
	s.byEmail[email] = stored.ID
	if stored.ExternalID != "" {
		s.byExternalID[stored.ExternalID] = stored.ID
	}
	return copyUser(stored), true, nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

// GetUserByEmail returns the user with the given email, compared
// case-insensitively.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

// GetUserByExternalID returns the user linked to the given external id.
func (s *Store) GetUserByExternalID(_ context.Context, externalID string) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byExternalID[externalID]
	if !ok || externalID == "" {
		return nil, storage.ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(_ context.Context) ([]*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*api.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Email < users[j].Email
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// UserExists reports whether a user with the given email exists.
func (s *Store) UserExists(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byEmail[strings.ToLower(email)]
	return ok, nil
}

// UpdateUser overwrites the display name, nationality, and avatar of u.ID.
func (s *Store) UpdateUser(_ context.Context, u *api.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[u.ID]
	if !ok {
		return storage.ErrNotFound
	}
	stored.DisplayName = u.DisplayName
	stored.Nationality = u.Nationality
	stored.AvatarURL = u.AvatarURL
	return nil
}

// DeleteUser removes a user and every product it owns.
func (s *Store) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, u.Email)
	if u.ExternalID != "" {
		delete(s.byExternalID, u.ExternalID)
	}
	for pid, p := range s.products {
		if p.OwnerID == id {
			delete(s.products, pid)
		}
	}
	return nil
}

// CreateProduct inserts p, assigning the next sequential id. The owner must
// exist.
func (s *Store) CreateProduct(_ context.Context, p *api.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.OwnerID]; !ok {
		return storage.ErrReferenceNotFound
	}

	p.ID = s.nextProductID
	s.nextProductID++
	s.products[p.ID] = copyProduct(p)
	return nil
}

// GetProduct returns the product with the given id.
func (s *Store) GetProduct(_ context.Context, id int64) (*api.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyProduct(p), nil
}

// ListProducts returns all products ordered by id.
func (s *Store) ListProducts(_ context.Context) ([]*api.Product, error) {
	return s.listProducts(func(*api.Product) bool { return true }), nil
}

// ListProductsByOwner returns the products owned by ownerID ordered by id.
func (s *Store) ListProductsByOwner(_ context.Context, ownerID uuid.UUID) ([]*api.Product, error) {
	return s.listProducts(func(p *api.Product) bool { return p.OwnerID == ownerID }), nil
}

func (s *Store) listProducts(match func(*api.Product) bool) []*api.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]*api.Product, 0)
	for _, p := range s.products {
		if match(p) {
			products = append(products, copyProduct(p))
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

// UpdateProduct overwrites the content fields of p.ID.
func (s *Store) UpdateProduct(_ context.Context, p *api.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.products[p.ID]
	if !ok {
		return storage.ErrNotFound
	}
	stored.Name = p.Name
	stored.Price = p.Price
	stored.Description = p.Description
	stored.UseTime = p.UseTime
	return nil
}

// DeleteProduct removes the product with the given id.
func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func copyUser(u *api.User) *api.User {
	c := *u
	return &c
}

func copyProduct(p *api.Product) *api.Product {
	c := *p
	return &c
}
