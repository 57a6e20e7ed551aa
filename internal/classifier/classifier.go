// Package classifier is the boundary with the external image classification
// service. It turns image bytes into a domain.AISearchResult or a ServiceError.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"parts-finder/internal/domain"
)

var (
	ErrService           = errors.New("image classification failed")
	ErrMissingCredential = errors.New("classifier access credential is missing")
	ErrEmptyResponse     = errors.New("classifier returned no payload")
	ErrSuperseded        = errors.New("image analysis superseded by a newer request")
)

// Analyzer classifies an image of a car part
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*domain.AISearchResult, error)
}

// ServiceError reports a failed classification. The operation is abandoned.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrService, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == ErrService }

func serviceError(op string, err error) error {
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Op: op, Err: err}
}

// normalize clamps the confidence and never returns a nil part number list
func normalize(res *domain.AISearchResult) *domain.AISearchResult {
	switch {
	case res.Confidence < 0:
		res.Confidence = 0
	case res.Confidence > 1:
		res.Confidence = 1
	}
	if res.PossiblePartNumbers == nil {
		res.PossiblePartNumbers = []string{}
	}
	return res
}
