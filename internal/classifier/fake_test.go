package classifier

import (
	"context"
	"sync"

	"parts-finder/internal/domain"
)

// stubAnalyzer returns queued outcomes in order and records every call
type stubAnalyzer struct {
	mu      sync.Mutex
	calls   int
	results []*domain.AISearchResult
	errs    []error
	block   chan struct{}
}

func (s *stubAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*domain.AISearchResult, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var (
		res *domain.AISearchResult
		err error
	)
	if i < len(s.results) {
		res = s.results[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if res == nil && err == nil {
		res = &domain.AISearchResult{DetectedName: "فلتر زيت", Confidence: 0.9, PossiblePartNumbers: []string{}}
	}
	return res, err
}

func (s *stubAnalyzer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
