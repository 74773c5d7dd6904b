package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/whiskeyshelf/apiserver/internal/scope"
	"github.com/whiskeyshelf/apiserver/internal/services"
)

const queryAssignedOnly = "assigned_only"

// AttributeHandler serves /tags or /places depending on the service kind.
type AttributeHandler struct {
	service *services.AttributeService
}

func NewAttributeHandler(service *services.AttributeService) *AttributeHandler {
	return &AttributeHandler{service: service}
}

// AttributeRouter registers list and create routes. Every route requires
// authentication.
func AttributeRouter(r chi.Router, service *services.AttributeService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAttributeHandler(service)

	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
}

// List returns the caller's attributes. assigned_only=1 keeps only those
// used by at least one whiskey.
func (h *AttributeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	assignedOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get(queryAssignedOnly)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeFieldError(w, "validation failed", queryAssignedOnly, "must be an integer")
			return
		}
		assignedOnly = n != 0
	}

	items, err := h.service.List(r.Context(), scope.AttributeFilter{
		OwnerID:      userID,
		AssignedOnly: assignedOnly,
	})
	if err != nil {
		writeServiceError(w, r, err, "list "+string(h.service.Kind())+"s")
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// Create stores a new attribute owned by the caller.
func (h *AttributeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req services.AttributeInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err, "create "+string(h.service.Kind()))
		return
	}

	writeJSON(w, http.StatusCreated, created)
}
