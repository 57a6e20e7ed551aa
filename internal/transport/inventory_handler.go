package transport

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"parts-finder/internal/ingest"
	"parts-finder/internal/middleware"
	"parts-finder/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UploadField is the multipart field carrying the inventory CSV
const UploadField = "file"

// IngestResponse reports an appended batch
type IngestResponse struct {
	Added    int                 `json:"added"`
	Items    []ItemResponse      `json:"items"`
	Warnings []ingest.RowWarning `json:"warnings"`
	Total    int                 `json:"total"`
}

// InventoryHandler handles HTTP requests for the merchant inventory
type InventoryHandler struct {
	inventoryService service.InventoryService
	maxUploadBytes   int64
	logger           *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService service.InventoryService, maxUploadBytes int64, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		maxUploadBytes:   maxUploadBytes,
		logger:           logger,
	}
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/", h.List)
		r.Delete("/", h.Clear)
		r.Post("/upload", h.Upload)
		r.Get("/template", h.Template)
		r.Patch("/{id}", h.Update)
	})
}

// List handles the merchant table, optionally filtered by origin
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	origin, err := parseOriginFilter(r.URL.Query().Get("origin"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.inventoryService.List(r.Context(), origin)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list inventory")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ItemListResponse{
		Items: toItemResponses(items),
		Count: len(items),
		Total: &total,
	})
}

// Upload handles a CSV upload and appends the parsed rows
func (h *InventoryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		h.logger.Debug("Upload rejected", zap.Error(err))

		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	result, err := h.inventoryService.Ingest(r.Context(), header.Filename, contentType, file)
	if err != nil {
		h.logger.Debug("Inventory upload failed",
			zap.String("filename", header.Filename),
			zap.String("content_type", contentType),
			zap.Error(err),
		)
		respondWithServiceError(w, h.logger, err, "failed to ingest inventory")
		return
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []ingest.RowWarning{}
	}

	middleware.RespondWithJSON(w, http.StatusCreated, IngestResponse{
		Added:    result.Added,
		Items:    toItemResponses(result.Items),
		Warnings: warnings,
		Total:    result.Total,
	})
}

// Template serves the sample CSV merchants fill in
func (h *InventoryHandler) Template(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": ingest.TemplateFilename,
	}))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ingest.Template()))
}

// Update handles the merchant edit action
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	err := h.inventoryService.Update(r.Context(), id)
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithServiceError(w, h.logger, err, "failed to update inventory item")
}

// Clear discards the whole inventory
func (h *InventoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.inventoryService.Clear(r.Context()); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to clear inventory")
		return
	}

	h.logger.Info("Inventory cleared by merchant")
	w.WriteHeader(http.StatusNoContent)
}
