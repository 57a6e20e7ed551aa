package transport

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"parts-finder/internal/domain"
	"parts-finder/internal/middleware"
	"parts-finder/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ImageField is the multipart field carrying the part photo
const ImageField = "image"

const defaultImageMimeType = "image/jpeg"

// SearchRequest represents the text search payload. AIResult carries a
// previous image analysis so the storefront can refine without re-uploading.
type SearchRequest struct {
	Query    string                 `json:"query" validate:"max=500"`
	Origin   string                 `json:"origin" validate:"omitempty,max=16"`
	AIResult *domain.AISearchResult `json:"ai_result"`
}

// ImageSearchResponse carries the classifier result and the matched items
type ImageSearchResponse struct {
	AIResult       *domain.AISearchResult `json:"ai_result"`
	SuggestedQuery string                 `json:"suggested_query"`
	Items          []ItemResponse         `json:"items"`
	Count          int                    `json:"count"`
}

// SearchHandler handles shopper searches
type SearchHandler struct {
	inventoryService service.InventoryService
	maxImageBytes    int64
	logger           *zap.Logger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(inventoryService service.InventoryService, maxImageBytes int64, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		inventoryService: inventoryService,
		maxImageBytes:    maxImageBytes,
		logger:           logger,
	}
}

// RegisterRoutes registers the search routes. imageLimiter guards the image
// route and may be nil.
func (h *SearchHandler) RegisterRoutes(r chi.Router, imageLimiter func(http.Handler) http.Handler) {
	r.Route("/api/search", func(r chi.Router) {
		r.Post("/", h.Search)

		r.Group(func(r chi.Router) {
			if imageLimiter != nil {
				r.Use(imageLimiter)
			}
			r.Post("/image", h.SearchByImage)
		})
	})
}

// Search handles a text search with an optional prior AI result
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Search validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	origin, err := parseOriginFilter(req.Origin)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.inventoryService.Search(r.Context(), req.Query, origin, req.AIResult)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to search inventory")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ItemListResponse{
		Items: toItemResponses(items),
		Count: len(items),
	})
}

// SearchByImage classifies an uploaded photo and searches with the result
func (h *SearchHandler) SearchByImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes)

	file, header, err := r.FormFile(ImageField)
	if err != nil {
		h.logger.Debug("Image upload rejected", zap.Error(err))

		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "image is too large")
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "multipart field \"image\" is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(image) == 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "image is empty")
		return
	}

	origin, err := parseOriginFilter(r.FormValue("origin"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.inventoryService.SearchByImage(r.Context(), service.ImageSearchRequest{
		Session:  middleware.ClientKey(r),
		Image:    image,
		MimeType: imageMimeType(header.Header.Get("Content-Type"), image),
		Query:    r.FormValue("query"),
		Origin:   origin,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to search by image")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ImageSearchResponse{
		AIResult:       result.AIResult,
		SuggestedQuery: result.SuggestedQuery,
		Items:          toItemResponses(result.Items),
		Count:          len(result.Items),
	})
}

// imageMimeType keeps a declared image/* type, otherwise sniffs the bytes
// and settles on image/jpeg when they do not look like an image
func imageMimeType(declared string, image []byte) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	if sniffed := http.DetectContentType(image); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return defaultImageMimeType
}
