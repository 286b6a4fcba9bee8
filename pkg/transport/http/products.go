package http

import (
	"net/http"

	"github.com/rhuss/ecotrade/pkg/api"
	"github.com/rhuss/ecotrade/pkg/auth"
	"github.com/rhuss/ecotrade/pkg/transport"
)

// listProducts handles GET /api/products.
func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, h.products.Views(r.Context(), products...))
}

// listProductsByOwner handles GET /api/products/user/{userId}.
func (h *handlers) listProductsByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}

	products, err := h.products.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, h.products.Views(r.Context(), products...))
}

// getProduct handles GET /api/products/{id}.
func (h *handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, h.products.Views(r.Context(), p)[0])
}

// createProduct handles POST /api/products/user/{userId}.
func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}

	var req api.ProductRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	p, err := h.products.Create(r.Context(), auth.IdentityFromContext(r.Context()), req, ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, h.products.Views(r.Context(), p)[0])
}

// updateProduct handles PUT /api/products/{id}.
func (h *handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	var req api.ProductRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	p, err := h.products.Update(r.Context(), auth.IdentityFromContext(r.Context()), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, h.products.Views(r.Context(), p)[0])
}

// deleteProduct handles DELETE /api/products/{id}.
func (h *handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), auth.IdentityFromContext(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
