package groupcast

import (
	"sort"
	"sync"

	"github.com/opd-ai/groupcast/interfaces"
	"github.com/sirupsen/logrus"
)

// Registry is the directory of live sessions, keyed by handle.
//
// Lookups take a read lock and run in parallel; Insert and Remove take the
// write lock. Sessions are fully built before Insert, so a concurrent
// FindByHandle observes either the complete Session or nothing. The lock is
// never held across a service call.
type Registry struct {
	mu       sync.RWMutex
	sessions map[interfaces.Handle]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[interfaces.Handle]*Session)}
}

// Insert adds s. A second session under an already registered handle fails
// with KindDuplicateHandle and leaves the registry unchanged.
func (r *Registry) Insert(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.handle]; exists {
		logrus.WithFields(logrus.Fields{
			"function": "Registry.Insert",
			"handle":   s.handle.String(),
		}).Error("Handle already registered")
		return &Error{
			Kind:    KindDuplicateHandle,
			Op:      OpConnect,
			Handle:  s.handle,
			Message: "handle " + s.handle.String() + " is already registered",
		}
	}
	r.sessions[s.handle] = s
	return nil
}

// Remove deletes s by identity. It fails with KindNotFound when s is not
// registered, including when a different Session holds its handle.
func (r *Registry) Remove(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[s.handle]; !ok || current != s {
		return notFound(s.handle)
	}
	delete(r.sessions, s.handle)
	return nil
}

// FindByHandle returns the live Session for handle.
func (r *Registry) FindByHandle(handle interfaces.Handle) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[handle]
	r.mu.RUnlock()

	if !ok {
		return nil, notFound(handle)
	}
	return s, nil
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Handles returns the registered handles in ascending order.
func (r *Registry) Handles() []interfaces.Handle {
	r.mu.RLock()
	handles := make([]interfaces.Handle, 0, len(r.sessions))
	for h := range r.sessions {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// snapshot returns the registered sessions at one instant.
func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func notFound(handle interfaces.Handle) *Error {
	return &Error{
		Kind:    KindNotFound,
		Handle:  handle,
		Message: "no session registered for handle " + handle.String(),
	}
}
