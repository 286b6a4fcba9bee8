// Package postgres provides a PostgreSQL store for users and products on top
// of a pgx/v5 connection pool. Uniqueness of email and external id and the
// owner reference of products are enforced by the schema.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/ecotrade/pkg/api"
	"github.com/rhuss/ecotrade/pkg/debug"
	"github.com/rhuss/ecotrade/pkg/identity"
	"github.com/rhuss/ecotrade/pkg/product"
	"github.com/rhuss/ecotrade/pkg/storage"
)

// PostgreSQL error codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"

	// classDataException covers out-of-range numbers, invalid text
	// encodings, and similar rejected values (SQLSTATE 22xxx).
	classDataException = "22"
)

const userColumns = `id, email, external_id, display_name, avatar_url, nationality, created_at`

const productColumns = `id, name, price::float8, description, use_time, owner_id, created_at`

// Store is a PostgreSQL-backed user and product store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements both service stores at compile time.
var (
	_ identity.UserStore = (*Store)(nil)
	_ product.Store      = (*Store)(nil)
	_ product.OwnerStore = (*Store)(nil)
)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied first.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	if cfg.MigrateOnStart {
		if err := RunMigrations(cfg.DSN); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// CreateUserIfAbsent inserts u unless its id, email, or external id is
// already taken, in which case the existing user is returned. The insert and
// the conflict check are one statement, so concurrent callers cannot both
// create.
func (s *Store) CreateUserIfAbsent(ctx context.Context, u *api.User) (*api.User, bool, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, external_id, display_name, avatar_url, nationality, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
		RETURNING `+userColumns,
		u.ID, u.Email, nullString(u.ExternalID), u.DisplayName, u.AvatarURL, u.Nationality, u.CreatedAt,
	)

	created, err := scanUser(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, translate("inserting user", err)
	}
	debug.Log("storage", "user insert conflicted", "email", u.Email)

	existing, err := s.GetUserByEmail(ctx, u.Email)
	if errors.Is(err, storage.ErrNotFound) && u.ExternalID != "" {
		existing, err = s.GetUserByExternalID(ctx, u.ExternalID)
	}
	if errors.Is(err, storage.ErrNotFound) {
		// The conflicting row disappeared before we could read it.
		return nil, false, storage.ErrConflict
	}
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*api.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

// GetUserByEmail returns the user with the given email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*api.User, error) {
	return s.getUser(ctx, `email = lower($1)`, email)
}

// GetUserByExternalID returns the user linked to the given external id.
func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*api.User, error) {
	if externalID == "" {
		return nil, storage.ErrNotFound
	}
	return s.getUser(ctx, `external_id = $1`, externalID)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*api.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		return nil, translate("querying user", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]*api.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, translate("listing users", err)
	}
	defer rows.Close()

	users := make([]*api.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate("scanning user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("iterating users", err)
	}
	return users, nil
}

// UserExists reports whether a user with the given email exists.
func (s *Store) UserExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, translate("checking user", err)
	}
	return exists, nil
}

// UpdateUser overwrites the display name, avatar, and nationality of u.ID.
func (s *Store) UpdateUser(ctx context.Context, u *api.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET display_name = $2, avatar_url = $3, nationality = $4
		WHERE id = $1`,
		u.ID, u.DisplayName, u.AvatarURL, u.Nationality,
	)
	if err != nil {
		return translate("updating user", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user. Its products go with it through the
// ON DELETE CASCADE foreign key.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate("deleting user", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CreateProduct inserts p and sets p.ID from the identity column.
func (s *Store) CreateProduct(ctx context.Context, p *api.Product) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, price, description, use_time, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.Name, p.Price, p.Description, p.UseTime, p.OwnerID, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return translate("inserting product", err)
	}
	return nil
}

// GetProduct returns the product with the given id.
func (s *Store) GetProduct(ctx context.Context, id int64) (*api.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, translate("querying product", err)
	}
	return p, nil
}

// ListProducts returns all products ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]*api.Product, error) {
	return s.listProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

// ListProductsByOwner returns the products owned by ownerID ordered by id.
func (s *Store) ListProductsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*api.Product, error) {
	return s.listProducts(ctx, `SELECT `+productColumns+` FROM products WHERE owner_id = $1 ORDER BY id`, ownerID)
}

func (s *Store) listProducts(ctx context.Context, query string, args ...any) ([]*api.Product, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("listing products", err)
	}
	defer rows.Close()

	products := make([]*api.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, translate("scanning product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("iterating products", err)
	}
	return products, nil
}

// UpdateProduct overwrites the content fields of p.ID.
func (s *Store) UpdateProduct(ctx context.Context, p *api.Product) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products SET name = $2, price = $3, description = $4, use_time = $5
		WHERE id = $1`,
		p.ID, p.Name, p.Price, p.Description, p.UseTime,
	)
	if err != nil {
		return translate("updating product", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteProduct removes the product with the given id.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return translate("deleting product", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (*api.User, error) {
	var (
		u          api.User
		externalID *string
	)
	err := row.Scan(&u.ID, &u.Email, &externalID, &u.DisplayName, &u.AvatarURL, &u.Nationality, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if externalID != nil {
		u.ExternalID = *externalID
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func scanProduct(row pgx.Row) (*api.Product, error) {
	var p api.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.UseTime, &p.OwnerID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// translate maps driver errors onto the storage sentinels.
func translate(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", storage.ErrReferenceNotFound, pgErr.ConstraintName)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s", storage.ErrInvalidValue, pgErr.ConstraintName)
		}
		if strings.HasPrefix(pgErr.Code, classDataException) {
			return fmt.Errorf("%w: %s: %s", storage.ErrInvalidValue, op, pgErr.Message)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", storage.ErrUnavailable, op, err)
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
