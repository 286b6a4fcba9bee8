package identity

import (
	"context"
	"errors"
	"fmt"
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

// Service implements registration, login lookups, and self-service profile
// management on top of a UserStore.
type Service struct {
	store  UserStore
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(store UserStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterOrFetch materializes p as a User on first sight. It returns the new
// user and true, or the already stored user and false; an existing user is
// never updated from p.
func (s *Service) RegisterOrFetch(ctx context.Context, p Profile) (*api.User, bool, error) {
	email := api.NormalizeEmail(p.Email)
	if apiErr := api.ValidateEmail(email); apiErr != nil {
		return nil, false, apiErr
	}
	if apiErr := api.ValidateUpdateUserRequest(&api.UpdateUserRequest{
		Name:        &p.Name,
		Nationality: &p.Nationality,
		AvatarURL:   &p.AvatarURL,
	}); apiErr != nil {
		return nil, false, apiErr
	}

	externalID := strings.TrimSpace(p.ExternalID)
	candidate := &api.User{
		ID:          api.UserIDFromExternalID(externalID),
		Email:       email,
		DisplayName: strings.TrimSpace(p.Name),
		Nationality: strings.TrimSpace(p.Nationality),
		AvatarURL:   strings.TrimSpace(p.AvatarURL),
		ExternalID:  externalID,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}

	user, created, err := s.store.CreateUserIfAbsent(ctx, candidate)
	if errors.Is(err, storage.ErrConflict) {
		// The store lost a race it could not resolve itself; the winner's
		// row is committed, so fetch it.
		debug.Log("identity", "insert lost race, fetching winner", "email", email, "external_id", externalID)
		user, err = s.fetchExisting(ctx, email, externalID)
		created = false
	}
	if err != nil {
		observability.RegistrationsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("registration failed", "email", email, "error", err)
		return nil, false, fmt.Errorf("%w: %w", ErrReconciliationFailed, err)
	}

	if created {
		observability.RegistrationsTotal.WithLabelValues("created").Inc()
		s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	} else {
		observability.RegistrationsTotal.WithLabelValues("existing").Inc()
	}
	return user, created, nil
}

// fetchExisting returns the user that owns email, or failing that externalID.
func (s *Service) fetchExisting(ctx context.Context, email, externalID string) (*api.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) && externalID != "" {
		user, err = s.store.GetUserByExternalID(ctx, externalID)
	}
	return user, err
}

// FetchByEmail returns the user registered with email. It never creates one.
func (s *Service) FetchByEmail(ctx context.Context, email string) (*api.User, error) {
	user, err := s.store.GetUserByEmail(ctx, api.NormalizeEmail(email))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

// ResolveCaller returns the user a verified identity belongs to, looked up by
// external id and then by email.
func (s *Service) ResolveCaller(ctx context.Context, caller *auth.Identity) (*api.User, error) {
	if !caller.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if caller.ExternalID != "" {
		user, err := s.store.GetUserByExternalID(ctx, caller.ExternalID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}
	return s.FetchByEmail(ctx, caller.Email)
}

// GetUser returns the user with the given id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*api.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]*api.User, error) {
	return s.store.ListUsers(ctx)
}

// EmailExists reports whether a user is registered with email.
func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.store.UserExists(ctx, api.NormalizeEmail(email))
}

// UpdateProfile applies req to the user with the given id. Only the user
// themself may update their profile; email and external id never change.
func (s *Service) UpdateProfile(ctx context.Context, caller *auth.Identity, id uuid.UUID, req api.UpdateUserRequest) (*api.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(caller, user.Email, user.ExternalID); err != nil {
		return nil, err
	}
	if apiErr := api.ValidateUpdateUserRequest(&req); apiErr != nil {
		return nil, apiErr
	}

	if req.Name != nil {
		user.DisplayName = strings.TrimSpace(*req.Name)
	}
	if req.Nationality != nil {
		user.Nationality = strings.TrimSpace(*req.Nationality)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

// DeleteUser removes the user with the given id together with the products
// it owns. Only the user themself may delete their account.
func (s *Service) DeleteUser(ctx context.Context, caller *auth.Identity, id uuid.UUID) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(caller, user.Email, user.ExternalID); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return mapNotFound(err)
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// mapNotFound translates storage.ErrNotFound into ErrUserNotFound.
func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
