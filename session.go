package groupcast

import (
	"sync"

	"github.com/opd-ai/groupcast/interfaces"
)

// Session is one open connection to the group service.
//
// A Session is created by Client.Create and destroyed exactly once by
// Client.Destroy. Join, Send and Destroy on the same Session serialize on an
// internal lock, so a Session may be shared between goroutines.
type Session struct {
	client *Client
	handle interfaces.Handle
	owner  any

	mu        sync.Mutex
	groups    [][]byte
	joined    map[string]struct{}
	destroyed bool
}

func newSession(client *Client, handle interfaces.Handle, owner any) *Session {
	return &Session{
		client: client,
		handle: handle,
		owner:  owner,
		joined: make(map[string]struct{}),
	}
}

// Handle returns the service-issued handle. It stays valid as an identifier
// after destruction, but no longer resolves through the registry.
func (s *Session) Handle() interfaces.Handle {
	return s.handle
}

// Owner returns the value passed to Client.Create. It exists for dispatch
// correlation only; the Session never acts on it.
func (s *Session) Owner() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Groups returns the joined group names in join order.
func (s *Session) Groups() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.groups))
	for i, g := range s.groups {
		out[i] = append([]byte(nil), g...)
	}
	return out
}

// Joined reports whether a Join of group has succeeded on this session.
func (s *Session) Joined(group []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.joined[string(group)]
	return ok
}

// Destroyed reports whether Client.Destroy has run for this session.
func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// addGroup records a successful join. Must hold s.mu.
func (s *Session) addGroup(group []byte) {
	name := string(group)
	if _, ok := s.joined[name]; ok {
		return
	}
	s.joined[name] = struct{}{}
	s.groups = append(s.groups, []byte(name))
}

// release drops everything the session holds after finalize. Must hold s.mu.
func (s *Session) release() {
	s.groups = nil
	s.joined = nil
	s.owner = nil
}

// destroyedError is returned by operations on a destroyed session. Must hold s.mu.
func (s *Session) destroyedError(op Operation) *Error {
	return &Error{
		Kind:    KindNotFound,
		Op:      op,
		Handle:  s.handle,
		Message: "session " + s.handle.String() + " has been destroyed",
	}
}
