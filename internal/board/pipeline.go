package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/taskboard/internal/model"
)

// Mutation is one optimistic change of a single logical field of a task.
// Apply performs the local change and returns the rollback that restores the
// exact pre-apply state; Persist issues the remote write.
type Mutation struct {
	TaskID  string
	Field   string
	Apply   func() (rollback func(), err error)
	Persist func(ctx context.Context) error
}

type fieldKey struct {
	taskID string
	field  string
}

// Pipeline drives the Idle -> Pending -> Confirmed/RolledBack cycle for every
// mutation. At most one request per (task, field) is authoritative at a time:
// a newer request supersedes the older one, whose eventual response is
// discarded without confirm or rollback.
type Pipeline struct {
	log lgr.L

	mu   sync.Mutex
	gens map[fieldKey]uint64
}

func NewPipeline(log lgr.L) *Pipeline {
	if log == nil {
		log = lgr.NoOp
	}
	return &Pipeline{
		log:  log,
		gens: make(map[fieldKey]uint64),
	}
}

// Do validates nothing itself: callers gate permissions and input before the
// optimistic apply, so denied or invalid requests never reach here.
func (p *Pipeline) Do(ctx context.Context, m Mutation) error {
	rollback, err := m.Apply()
	if err != nil {
		return err
	}

	key := fieldKey{taskID: m.TaskID, field: m.Field}
	gen := p.begin(key)

	err = m.Persist(ctx)

	if !p.finish(key, gen) {
		// A newer request for this field started while ours was in
		// flight; its state already replaced ours either way.
		p.log.Logf("DEBUG discarded superseded response task=%s field=%s", m.TaskID, m.Field)
		return ErrSuperseded
	}

	if err != nil {
		rollback()
		p.log.Logf("WARN rolled back %s of task %s: %v", m.Field, m.TaskID, err)
		return classifyRemoteError(fmt.Sprintf("update %s", m.Field), err)
	}
	return nil
}

func (p *Pipeline) begin(key fieldKey) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gens[key]++
	return p.gens[key]
}

// finish reports whether gen is still the latest request for key and, if so,
// retires the key.
func (p *Pipeline) finish(key fieldKey, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gens[key] != gen {
		return false
	}
	delete(p.gens, key)
	return true
}

func classifyRemoteError(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrTaskNotFound),
		errors.Is(err, model.ErrAttachmentNotFound),
		errors.Is(err, model.ErrUserNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &TransportError{Op: op, Err: err}
	default:
		return &ConflictError{Op: op, Err: err}
	}
}
