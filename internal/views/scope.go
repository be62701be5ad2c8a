// Package views holds the per-session state of each dashboard screen and
// the loads that fill it. A load runs as a task bound to both the request
// and the view's scope: mounting the view again or logging out cancels it.
package views

import (
	"context"
	"errors"
	"sync"

	"dashboard/internal/api_client"
)

type View string

const (
	ViewDashboard     View = "dashboard"
	ViewEvents        View = "events"
	ViewStudents      View = "students"
	ViewSchools       View = "schools"
	ViewFaceEncodings View = "face_encodings"
)

type scopeKey struct {
	sessionID string
	view      View
}

type scope struct {
	cancel context.CancelFunc
	gen    uint64
	state  any
}

// Registry owns every live view scope.
type Registry struct {
	mu     sync.Mutex
	gen    uint64
	scopes map[scopeKey]*scope
}

func NewRegistry() *Registry {
	return &Registry{scopes: make(map[scopeKey]*scope)}
}

// Task is one load of a view.
type Task struct {
	ctx     context.Context
	release func()
	reg     *Registry
	key     scopeKey
	gen     uint64
}

// Mount starts a new task for the view, cancelling the previous one. The
// task's context ends when parent ends, when the view is mounted again or
// when the session is torn down.
func (r *Registry) Mount(parent context.Context, sessionID string, view View) *Task {
	key := scopeKey{sessionID: sessionID, view: view}
	scopeCtx, scopeCancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.gen++
	gen := r.gen
	var state any
	if prev, ok := r.scopes[key]; ok {
		prev.cancel()
		state = prev.state
	}
	r.scopes[key] = &scope{cancel: scopeCancel, gen: gen, state: state}
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(scopeCtx, cancel)

	return &Task{
		ctx: ctx,
		release: func() {
			stop()
			cancel()
		},
		reg: r,
		key: key,
		gen: gen,
	}
}

func (t *Task) Context() context.Context {
	return t.ctx
}

// Done releases the task's resources. The scope stays mounted.
func (t *Task) Done() {
	t.release()
}

// Commit stores state for the view unless the task was superseded or
// cancelled. It reports whether the state was stored.
func (t *Task) Commit(state any) bool {
	if t.ctx.Err() != nil {
		return false
	}

	t.reg.mu.Lock()
	defer t.reg.mu.Unlock()

	current, ok := t.reg.scopes[t.key]
	if !ok || current.gen != t.gen {
		return false
	}
	current.state = state
	return true
}

// State returns the last committed state of the view.
func (r *Registry) State(sessionID string, view View) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scopes[scopeKey{sessionID: sessionID, view: view}]
	if !ok || s.state == nil {
		return nil, false
	}
	return s.state, true
}

// Update replaces the committed state of a mounted view with fn's result.
// It reports false when the view has no state.
func (r *Registry) Update(sessionID string, view View, fn func(state any) any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scopes[scopeKey{sessionID: sessionID, view: view}]
	if !ok || s.state == nil {
		return false
	}
	s.state = fn(s.state)
	return true
}

// Teardown cancels every task of the session and drops its state.
func (r *Registry) Teardown(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, s := range r.scopes {
		if key.sessionID == sessionID {
			s.cancel()
			delete(r.scopes, key)
		}
	}
}

// Len is the number of mounted scopes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}

// controller is the shared mount/update logic of a typed view.
type controller[S any] struct {
	reg  *Registry
	view View
}

// mount runs load as a new task of the view and commits its result.
func (c controller[S]) mount(ctx context.Context, sessionID string, load func(ctx context.Context) (S, error)) (S, error) {
	task := c.reg.Mount(ctx, sessionID, c.view)
	defer task.Done()

	state, err := load(task.Context())
	if err != nil {
		var zero S
		return zero, err
	}
	if err := task.Context().Err(); err != nil {
		var zero S
		return zero, err
	}
	task.Commit(state)
	return state, nil
}

// current returns the committed state, or ok=false when none exists.
func (c controller[S]) current(sessionID string) (S, bool) {
	value, ok := c.reg.State(sessionID, c.view)
	if !ok {
		var zero S
		return zero, false
	}
	state, ok := value.(S)
	return state, ok
}

// ensure returns the committed state, loading it first when absent.
func (c controller[S]) ensure(ctx context.Context, sessionID string, load func(ctx context.Context) (S, error)) (S, error) {
	if state, ok := c.current(sessionID); ok {
		return state, nil
	}
	return c.mount(ctx, sessionID, load)
}

func (c controller[S]) update(sessionID string, fn func(S) S) (S, bool) {
	var out S
	ok := c.reg.Update(sessionID, c.view, func(value any) any {
		state, _ := value.(S)
		out = fn(state)
		return out
	})
	return out, ok
}

// fatal reports errors a view cannot turn into a message: the session was
// rejected, or the task was cancelled.
func fatal(err error) bool {
	return api_client.IsUnauthorized(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
