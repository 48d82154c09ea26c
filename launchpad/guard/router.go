package guard

import "sync"

// Router is an in-process Location for headless clients.
type Router struct {
	mu   sync.RWMutex
	path string
}

// NewRouter starts at path.
func NewRouter(path string) *Router {
	return &Router{path: path}
}

// CurrentPath implements Location.
func (r *Router) CurrentPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// Navigate moves the router to path. Scopes mounted for another path stop
// allowing updates.
func (r *Router) Navigate(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

// CollectionPath is the route a collection's launchpad view is mounted on.
func CollectionPath(collectionID string) string {
	return "/launchpad/" + collectionID
}
