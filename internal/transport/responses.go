package transport

import (
	"errors"
	"net/http"
	"strings"

	"parts-finder/internal/classifier"
	"parts-finder/internal/domain"
	"parts-finder/internal/ingest"
	"parts-finder/internal/middleware"
	"parts-finder/internal/repository"
	"parts-finder/internal/service"

	"go.uber.org/zap"
)

// User facing messages shown by the storefront
const (
	msgNotCSV          = "يرجى رفع ملف CSV."
	msgUnreadableFile  = "حدث خطأ أثناء قراءة الملف. تأكد من تنسيق البيانات."
	msgAnalysisFailed  = "فشل تحليل الصورة. يرجى التأكد من مفتاح API والمحاولة مرة أخرى."
	msgAnalysisReplace = "image analysis replaced by a newer request"
)

// originFilterAll disables the origin pre-filter
const originFilterAll = "ALL"

// ItemResponse is the JSON view of an inventory item
type ItemResponse struct {
	ID          string        `json:"id"`
	PartNumber  string        `json:"part_number"`
	Name        string        `json:"name"`
	Origin      domain.Origin `json:"origin"`
	OriginLabel string        `json:"origin_label"`
	Price       float64       `json:"price"`
	Quantity    int           `json:"quantity"`
	LowStock    bool          `json:"low_stock"`
	CustomerRef string        `json:"customer_ref,omitempty"`
	Description string        `json:"description,omitempty"`
}

// ItemListResponse is returned by listing and search endpoints
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Count int            `json:"count"`
	Total *int           `json:"total,omitempty"`
}

func toItemResponse(item domain.InventoryItem) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		PartNumber:  item.PartNumber,
		Name:        item.Name,
		Origin:      item.Origin,
		OriginLabel: item.Origin.Label(),
		Price:       item.Price,
		Quantity:    item.Quantity,
		LowStock:    item.LowStock(),
		CustomerRef: item.CustomerRef,
		Description: item.Description,
	}
}

func toItemResponses(items []domain.InventoryItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	return out
}

// parseOriginFilter maps a query value to an origin filter. Empty and ALL mean no filter.
func parseOriginFilter(raw string) (*domain.Origin, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, originFilterAll) {
		return nil, nil
	}

	origin, err := domain.ParseOrigin(raw)
	if err != nil {
		return nil, err
	}
	return &origin, nil
}

// respondWithServiceError maps domain errors onto the JSON error envelope
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var formatErr *ingest.FormatError

	switch {
	case errors.As(err, &formatErr):
		middleware.RespondWithErrorDetails(w, http.StatusUnsupportedMediaType, msgNotCSV, map[string]interface{}{
			"filename":     formatErr.Filename,
			"content_type": formatErr.ContentType,
		})
	case errors.Is(err, ingest.ErrParse):
		middleware.RespondWithError(w, http.StatusBadRequest, msgUnreadableFile)
	case errors.Is(err, classifier.ErrSuperseded):
		middleware.RespondWithError(w, http.StatusConflict, msgAnalysisReplace)
	case errors.Is(err, classifier.ErrService):
		middleware.RespondWithError(w, http.StatusBadGateway, msgAnalysisFailed)
	case errors.Is(err, repository.ErrItemNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "inventory item not found")
	case errors.Is(err, service.ErrNotImplemented):
		middleware.RespondWithError(w, http.StatusNotImplemented, "editing inventory items is not supported yet")
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
