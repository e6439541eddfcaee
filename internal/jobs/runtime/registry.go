package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler runs one job type. Run reports progress and the final result through the Context.
type Handler interface {
	Type() string
	Run(ctx *Context) error
}

// ErrDuplicateHandler is returned when a job type is registered twice.
var ErrDuplicateHandler = errors.New("job handler already registered")

// Registry maps job types to handlers. It is safe for concurrent lookups.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{byType: map[string]Handler{}}
}

// Register adds handlers in order and stops at the first rejected one.
func (r *Registry) Register(hs ...Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range hs {
		if h == nil {
			return fmt.Errorf("register: nil handler")
		}
		jobType := strings.TrimSpace(h.Type())
		if jobType == "" {
			return fmt.Errorf("register %T: empty job type", h)
		}
		if _, dup := r.byType[jobType]; dup {
			return fmt.Errorf("register %s: %w", jobType, ErrDuplicateHandler)
		}
		r.byType[jobType] = h
	}
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.byType[jobType]
	r.mu.RUnlock()
	return h, ok
}

// Types lists the registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byType))
	for jobType := range r.byType {
		out = append(out, jobType)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
