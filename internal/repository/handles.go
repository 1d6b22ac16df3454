package repository

import "sync"

// HandleRegistry lazily creates one handle per collection name and hands the
// same handle back on every later call. It is safe for concurrent use.
type HandleRegistry[T any] struct {
	mu      sync.Mutex
	handles map[string]T
	create  func(name string) T
}

// NewHandleRegistry creates a registry that builds missing handles with create.
func NewHandleRegistry[T any](create func(name string) T) *HandleRegistry[T] {
	return &HandleRegistry[T]{
		handles: make(map[string]T),
		create:  create,
	}
}

// Get returns the handle for name, creating it on first use.
func (r *HandleRegistry[T]) Get(name string) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[name]; ok {
		return h
	}
	h := r.create(name)
	r.handles[name] = h
	return h
}

// Len reports how many handles have been created.
func (r *HandleRegistry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
