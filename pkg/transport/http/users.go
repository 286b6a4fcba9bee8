package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rhuss/ecotrade/pkg/api"
	"github.com/rhuss/ecotrade/pkg/auth"
	"github.com/rhuss/ecotrade/pkg/identity"
	"github.com/rhuss/ecotrade/pkg/transport"
)

// listUsers handles GET /api/users.
func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	views := make([]*api.UserResponse, 0, len(users))
	for _, u := range users {
		views = append(views, api.NewUserResponse(u))
	}
	transport.WriteJSON(w, http.StatusOK, views)
}

// getUser handles GET /api/users/{id}.
func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewUserResponse(user))
}

// getUserByEmail handles GET /api/users/email/{email}.
func (h *handlers) getUserByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FetchByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewUserResponse(user))
}

// userExists handles GET /api/users/exists/{email}.
func (h *handlers) userExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.users.EmailExists(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, exists)
}

// updateUser handles PUT /api/users/{id}.
func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req api.UpdateUserRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), auth.IdentityFromContext(r.Context()), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewUserResponse(user))
}

// deleteUser handles DELETE /api/users/{id}.
func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), auth.IdentityFromContext(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// me handles GET /api/users/me.
func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.ResolveCaller(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewUserResponse(user))
}

// register handles POST /api/users/auth/register.
//
// The email and external id always come from the verified token; the body
// only supplies profile fields. A body that names a different email or
// external id is rejected.
func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())
	if !caller.Authenticated() {
		h.writeServiceError(w, r, auth.ErrUnauthenticated)
		return
	}

	var req api.RegisterRequest
	if !h.decodeJSON(w, r, &req, true) {
		return
	}
	if !claimsMatch(caller, req.Email, req.SupabaseID) {
		h.writeServiceError(w, r, auth.ErrForbidden)
		return
	}

	user, created, err := h.users.RegisterOrFetch(r.Context(), identity.Profile{
		Name:        req.Name,
		Email:       caller.Email,
		Nationality: req.Nationality,
		AvatarURL:   req.AvatarURL,
		ExternalID:  caller.ExternalID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if created {
		transport.WriteJSON(w, http.StatusCreated, api.AuthResponse{
			Message: "User registered successfully",
			User:    api.NewUserResponse(user),
			Success: true,
		})
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.AuthResponse{
		Message: "User already exists",
		User:    api.NewUserResponse(user),
		Success: true,
	})
}

// login handles POST /api/users/auth/login. It never creates a user.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())
	if !caller.Authenticated() {
		h.writeServiceError(w, r, auth.ErrUnauthenticated)
		return
	}

	var req api.LoginRequest
	if !h.decodeJSON(w, r, &req, true) {
		return
	}
	if !claimsMatch(caller, req.Email, req.SupabaseID) {
		h.writeServiceError(w, r, auth.ErrForbidden)
		return
	}

	user, err := h.users.ResolveCaller(r.Context(), caller)
	if errors.Is(err, identity.ErrUserNotFound) {
		transport.WriteJSON(w, http.StatusNotFound, api.AuthResponse{
			Message: "User not found. Please register first.",
			Success: false,
		})
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, api.AuthResponse{
		Message: "Login successful",
		User:    api.NewUserResponse(user),
		Success: true,
	})
}

// claimsMatch reports whether the optional email and external id in a
// request body agree with the verified caller.
func claimsMatch(caller *auth.Identity, email, externalID string) bool {
	if email = strings.TrimSpace(email); email != "" && !strings.EqualFold(email, caller.Email) {
		return false
	}
	if externalID != "" && caller.ExternalID != "" && externalID != caller.ExternalID {
		return false
	}
	return true
}
