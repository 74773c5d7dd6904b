package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whiskeyshelf/apiserver/internal/scope"
	"github.com/whiskeyshelf/apiserver/internal/services"
)

const (
	maxImageBytes      = 10 << 20
	maxMultipartMemory = 32 << 20
	formFieldImage     = "image"
	queryTags          = "tags"
	queryPlaces        = "places"
	paramWhiskeyID     = "whiskeyID"
)

// WhiskeyHandler provides HTTP handlers for whiskeys.
type WhiskeyHandler struct {
	service *services.WhiskeyService
}

func NewWhiskeyHandler(service *services.WhiskeyService) *WhiskeyHandler {
	return &WhiskeyHandler{service: service}
}

// WhiskeyRouter registers whiskey routes. Every route requires
// authentication.
func WhiskeyRouter(r chi.Router, service *services.WhiskeyService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewWhiskeyHandler(service)

	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{"+paramWhiskeyID+"}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Patch("/", handler.Patch)
		r.Delete("/", handler.Delete)
		r.Post("/upload-image", handler.UploadImage)
	})
}

// List returns the caller's whiskeys, optionally narrowed by comma
// separated tag and place ids.
func (h *WhiskeyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	filter := scope.WhiskeyFilter{OwnerID: userID}
	var err error
	if filter.TagIDs, err = scope.ParseIDs(r.URL.Query().Get(queryTags)); err != nil {
		writeFieldError(w, "invalid identifier list", queryTags, err.Error())
		return
	}
	if filter.PlaceIDs, err = scope.ParseIDs(r.URL.Query().Get(queryPlaces)); err != nil {
		writeFieldError(w, "invalid identifier list", queryPlaces, err.Error())
		return
	}

	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "list whiskeys")
		return
	}

	writeJSON(w, http.StatusOK, renderWhiskeys(ShapeList, items))
}

func (h *WhiskeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	whiskey, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err, "fetch whiskey")
		return
	}

	writeJSON(w, http.StatusOK, renderWhiskey(ShapeDetail, whiskey))
}

func (h *WhiskeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req services.WhiskeyInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err, "create whiskey")
		return
	}

	writeJSON(w, http.StatusCreated, renderWhiskey(ShapeList, created))
}

func (h *WhiskeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req services.WhiskeyInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		writeServiceError(w, r, err, "update whiskey")
		return
	}

	writeJSON(w, http.StatusOK, renderWhiskey(ShapeList, updated))
}

func (h *WhiskeyHandler) Patch(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req services.WhiskeyPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.Patch(r.Context(), userID, id, req)
	if err != nil {
		writeServiceError(w, r, err, "update whiskey")
		return
	}

	writeJSON(w, http.StatusOK, renderWhiskey(ShapeList, updated))
}

func (h *WhiskeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err, "delete whiskey")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts a multipart form with a single "image" file.
func (h *WhiskeyHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFieldError(w, "validation failed", formFieldImage, "uploaded file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	// A missing file is passed through so ownership is checked first.
	var (
		filename string
		data     []byte
	)
	if file, header, err := r.FormFile(formFieldImage); err == nil {
		filename = header.Filename
		data, err = readFileLimited(file, maxImageBytes)
		_ = file.Close()
		if err != nil {
			writeFieldError(w, "validation failed", formFieldImage, err.Error())
			return
		}
	}

	updated, err := h.service.UploadImage(r.Context(), userID, id, filename, data)
	if err != nil {
		writeServiceError(w, r, err, "upload image")
		return
	}

	writeJSON(w, http.StatusOK, renderWhiskey(ShapeImage, updated))
}

func (h *WhiskeyHandler) target(w http.ResponseWriter, r *http.Request) (userID, id int, ok bool) {
	userID, ok = callerID(w, r)
	if !ok {
		return 0, 0, false
	}
	id, err := parseID(r, paramWhiskeyID)
	if err != nil {
		// Non-numeric ids can never match a record.
		writeError(w, http.StatusNotFound, "not found")
		return 0, 0, false
	}
	return userID, id, true
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
