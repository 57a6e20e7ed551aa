package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"parts-finder/internal/domain"
	"parts-finder/internal/ingest"
	"parts-finder/internal/repository"
	"parts-finder/internal/search"

	"go.uber.org/zap"
)

var (
	ErrNotImplemented = errors.New("operation not implemented")
)

// ImageRunner runs one image classification per session
type ImageRunner interface {
	Run(ctx context.Context, session string, image []byte, mimeType string) (*domain.AISearchResult, error)
}

// IngestResult describes an appended batch
type IngestResult struct {
	Added    int                    `json:"added"`
	Items    []domain.InventoryItem `json:"items"`
	Warnings []ingest.RowWarning    `json:"warnings,omitempty"`
	Total    int                    `json:"total"`
}

// ImageSearchRequest carries an image search
type ImageSearchRequest struct {
	Session  string
	Image    []byte
	MimeType string
	Query    string
	Origin   *domain.Origin
}

// ImageSearchResult is the classifier output together with the matched items
type ImageSearchResult struct {
	AIResult       *domain.AISearchResult `json:"ai_result"`
	SuggestedQuery string                 `json:"suggested_query,omitempty"`
	Items          []domain.InventoryItem `json:"items"`
}

// InventoryService defines the interface for inventory business logic
type InventoryService interface {
	Ingest(ctx context.Context, filename, contentType string, r io.Reader) (*IngestResult, error)
	IngestText(ctx context.Context, text string) (*IngestResult, error)
	List(ctx context.Context, origin *domain.Origin) (items []domain.InventoryItem, total int, err error)
	Search(ctx context.Context, query string, origin *domain.Origin, aiResult *domain.AISearchResult) ([]domain.InventoryItem, error)
	SearchByImage(ctx context.Context, req ImageSearchRequest) (*ImageSearchResult, error)
	Update(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type inventoryService struct {
	repo    repository.InventoryRepository
	parser  *ingest.Parser
	matcher *search.Matcher
	images  ImageRunner
	logger  *zap.Logger
}

// NewInventoryService creates a new instance of InventoryService
func NewInventoryService(
	repo repository.InventoryRepository,
	parser *ingest.Parser,
	matcher *search.Matcher,
	images ImageRunner,
	logger *zap.Logger,
) InventoryService {
	return &inventoryService{
		repo:    repo,
		parser:  parser,
		matcher: matcher,
		images:  images,
		logger:  logger,
	}
}

// Ingest validates the upload type, reads it completely and appends the parsed batch
func (s *inventoryService) Ingest(ctx context.Context, filename, contentType string, r io.Reader) (*IngestResult, error) {
	if err := ingest.CheckFormat(filename, contentType); err != nil {
		return nil, err
	}

	parsed, err := s.parser.ParseReader(r)
	if err != nil {
		return nil, err
	}

	return s.store(ctx, parsed)
}

// IngestText parses CSV text and appends the batch
func (s *inventoryService) IngestText(ctx context.Context, text string) (*IngestResult, error) {
	return s.store(ctx, s.parser.Parse(text))
}

func (s *inventoryService) store(ctx context.Context, parsed ingest.Result) (*IngestResult, error) {
	for _, w := range parsed.Warnings {
		s.logger.Debug("Skipped inventory row", zap.Int("row", w.Row), zap.String("reason", w.Reason))
	}

	total, err := s.repo.Append(ctx, parsed.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to append inventory: %w", err)
	}

	s.logger.Info("Inventory ingested",
		zap.Int("added", len(parsed.Items)),
		zap.Int("skipped", len(parsed.Warnings)),
		zap.Int("total", total),
	)

	return &IngestResult{
		Added:    len(parsed.Items),
		Items:    parsed.Items,
		Warnings: parsed.Warnings,
		Total:    total,
	}, nil
}

// List returns the merchant view of the inventory, optionally restricted to one origin
func (s *inventoryService) List(ctx context.Context, origin *domain.Origin) ([]domain.InventoryItem, int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory: %w", err)
	}

	return search.ByOrigin(all, origin), len(all), nil
}

// Search applies the origin pre-filter, then the query matcher
func (s *inventoryService) Search(ctx context.Context, query string, origin *domain.Origin, aiResult *domain.AISearchResult) ([]domain.InventoryItem, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}

	return s.matcher.Filter(search.ByOrigin(all, origin), query, aiResult), nil
}

// SearchByImage classifies the image once and searches with the result.
// A recognized part name replaces the caller's query.
func (s *inventoryService) SearchByImage(ctx context.Context, req ImageSearchRequest) (*ImageSearchResult, error) {
	aiResult, err := s.images.Run(ctx, req.Session, req.Image, req.MimeType)
	if err != nil {
		s.logger.Warn("Image analysis failed", zap.String("session", req.Session), zap.Error(err))
		return nil, err
	}

	out := &ImageSearchResult{AIResult: aiResult}

	query := req.Query
	if aiResult.Recognized() {
		out.SuggestedQuery = aiResult.DetectedName
		query = aiResult.DetectedName
	}

	out.Items, err = s.Search(ctx, query, req.Origin, aiResult)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Image search completed",
		zap.String("detected_name", aiResult.DetectedName),
		zap.Float64("confidence", aiResult.Confidence),
		zap.Int("matches", len(out.Items)),
	)

	return out, nil
}

// Update is the merchant edit action. Editing is not supported yet.
func (s *inventoryService) Update(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return ErrNotImplemented
}

// Clear discards the whole inventory
func (s *inventoryService) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear inventory: %w", err)
	}
	s.logger.Info("Inventory cleared")
	return nil
}
