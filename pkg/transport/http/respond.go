package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rhuss/ecotrade/pkg/api"
	"github.com/rhuss/ecotrade/pkg/auth"
	"github.com/rhuss/ecotrade/pkg/identity"
	"github.com/rhuss/ecotrade/pkg/product"
	"github.com/rhuss/ecotrade/pkg/storage"
	"github.com/rhuss/ecotrade/pkg/transport"
)

// errEmptyBody is returned by decodeJSON when the request has no body.
var errEmptyBody = errors.New("empty body")

// decodeJSON reads a JSON request body into v. It writes the error response
// itself and returns false on failure. An empty body is accepted when
// allowEmpty is set.
func (h *handlers) decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		err = errEmptyBody
		if allowEmpty {
			return true
		}
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", h.maxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// writeServiceError maps a service error to its HTTP response. Unexpected
// errors are logged and answered with a generic 500.
func (h *handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		transport.WriteAPIError(w, apiErr)
	case errors.Is(err, identity.ErrUserNotFound):
		transport.WriteAPIError(w, api.NewNotFoundError("user not found"))
	case errors.Is(err, product.ErrProductNotFound):
		transport.WriteAPIError(w, api.NewNotFoundError("product not found"))
	case errors.Is(err, product.ErrOwnerNotFound):
		transport.WriteAPIError(w, api.NewInvalidRequestError("userId", "owner not found"))
	case errors.Is(err, auth.ErrUnauthenticated):
		transport.WriteAPIError(w, api.NewUnauthorizedError("authentication required"))
	case errors.Is(err, auth.ErrForbidden):
		transport.WriteAPIError(w, api.NewForbiddenError("access denied"))
	case errors.Is(err, storage.ErrInvalidValue):
		h.logger.Warn("store rejected value", "path", r.URL.Path, "error", err)
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "a value in the request cannot be stored"))
	default:
		h.logger.Error("request failed",
			"request_id", transport.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		transport.WriteAPIError(w, api.NewServerError("internal server error"))
	}
}

// uuidParam parses the named path parameter as a UUID. It writes a 400 and
// returns false when the value is malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		transport.WriteAPIError(w, api.NewInvalidRequestError(name, name+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// int64Param parses the named path parameter as a positive integer.
func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		transport.WriteAPIError(w, api.NewInvalidRequestError(name, name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}
