package classifier

import (
	"context"
	"sync"
	"time"

	"parts-finder/internal/domain"

	"go.uber.org/zap"
)

// DefaultSession is used when the caller does not identify its session
const DefaultSession = "default"

type task struct {
	cancel context.CancelFunc
}

// Runner keeps at most one analysis in flight per session. Starting a new
// analysis cancels the previous one, whose caller receives ErrSuperseded.
type Runner struct {
	analyzer Analyzer
	timeout  time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]*task
}

// NewRunner creates a runner; a zero timeout disables the deadline
func NewRunner(analyzer Analyzer, timeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		analyzer: analyzer,
		timeout:  timeout,
		logger:   logger,
		inflight: make(map[string]*task),
	}
}

// Run analyzes the image exactly once for the given session
func (r *Runner) Run(ctx context.Context, session string, image []byte, mimeType string) (*domain.AISearchResult, error) {
	if session == "" {
		session = DefaultSession
	}

	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	t := r.start(session, cancel)

	result, err := r.analyzer.Analyze(ctx, image, mimeType)

	if superseded := r.finish(session, t); superseded {
		r.logger.Debug("Discarding superseded image analysis", zap.String("session", session))
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, serviceError("runner.Run", err)
	}

	return result, nil
}

// InFlight reports whether the session has a pending analysis
func (r *Runner) InFlight(session string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.inflight[session]
	return ok
}

func (r *Runner) start(session string, cancel context.CancelFunc) *task {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.inflight[session]; ok {
		prev.cancel()
	}

	t := &task{cancel: cancel}
	r.inflight[session] = t
	return t
}

func (r *Runner) finish(session string, t *task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inflight[session] != t {
		return true
	}
	delete(r.inflight, session)
	return false
}
