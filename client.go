package groupcast

import (
	"errors"
	"fmt"

	"github.com/opd-ai/groupcast/interfaces"
	"github.com/sirupsen/logrus"
)

// ErrNilService is returned by New when no group service is supplied.
var ErrNilService = errors.New("group service is required")

// Client creates and destroys sessions against one group service and keeps
// every live session in its Registry.
type Client struct {
	service    interfaces.GroupService
	registry   *Registry
	translator *Translator
	model      *interfaces.ModelDescriptor
}

// Option customizes a Client.
type Option func(*Client)

// WithModel sets the model descriptor passed on every Connect.
func WithModel(model *interfaces.ModelDescriptor) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithRegistry makes the client register sessions in r instead of a private
// registry. Clients sharing a registry must share a service, since handles
// are only unique per service.
func WithRegistry(r *Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// New creates a Client for service.
func New(service interfaces.GroupService, opts ...Option) (*Client, error) {
	if service == nil {
		return nil, ErrNilService
	}

	c := &Client{
		service:    service,
		registry:   NewRegistry(),
		translator: NewTranslator(service),
		model:      interfaces.DefaultModel(),
	}
	for _, opt := range opts {
		opt(c)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "New",
		"is_simulation": service.IsSimulation(),
		"model_version": c.model.Version,
	}).Info("Created group client")

	return c, nil
}

// Registry returns the registry holding this client's live sessions.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Translator returns the translator used for service statuses.
func (c *Client) Translator() *Translator {
	return c.translator
}

// Create connects a new session and registers it. owner is stored on the
// Session for dispatch correlation.
//
// A failed connect returns a KindConnectFailed error and registers nothing.
func (c *Client) Create(owner any) (*Session, error) {
	handle, status := c.service.Connect(c.model)
	if !status.IsOK() {
		e := c.translator.Translate(OpConnect, status)
		logrus.WithFields(logrus.Fields{
			"function": "Client.Create",
			"status":   status.String(),
			"error":    e.Message,
		}).Error("Could not connect to group service")
		return nil, e
	}

	s := newSession(c, handle, owner)
	if err := c.registry.Insert(s); err != nil {
		// The handle belongs to the session already registered under it;
		// finalizing here would tear that session down.
		logrus.WithFields(logrus.Fields{
			"function": "Client.Create",
			"handle":   handle.String(),
		}).Error("Group service issued a handle that is already in use")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Client.Create",
		"handle":   handle.String(),
		"sessions": c.registry.Len(),
	}).Info("Session created")

	return s, nil
}

// Lookup returns the live session for handle.
func (c *Client) Lookup(handle interfaces.Handle) (*Session, error) {
	return c.registry.FindByHandle(handle)
}

// Destroy tears s down exactly once: it waits for any in-flight Join or Send
// on s, removes s from the registry, finalizes the service handle and drops
// the session's state. A second Destroy returns KindDoubleDestroy.
//
// A finalize failure is returned as KindFinalizeFailed, but the session is
// still considered destroyed and is no longer registered.
func (c *Client) Destroy(s *Session) error {
	if s == nil {
		return &Error{Kind: KindNotFound, Message: "nil session"}
	}
	if s.client != c {
		return &Error{
			Kind:    KindNotFound,
			Handle:  s.handle,
			Message: "session " + s.handle.String() + " belongs to another client",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		logrus.WithFields(logrus.Fields{
			"function": "Client.Destroy",
			"handle":   s.handle.String(),
		}).Warn("Session destroyed twice")
		return &Error{
			Kind:    KindDoubleDestroy,
			Handle:  s.handle,
			Message: "session " + s.handle.String() + " was already destroyed",
		}
	}
	s.destroyed = true

	if err := c.registry.Remove(s); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Client.Destroy",
			"handle":   s.handle.String(),
			"error":    err.Error(),
		}).Warn("Session was not registered")
	}

	status := c.service.Finalize(s.handle)
	s.release()

	if !status.IsOK() {
		e := c.translator.Translate(OpFinalize, status)
		e.Handle = s.handle
		logrus.WithFields(logrus.Fields{
			"function": "Client.Destroy",
			"handle":   s.handle.String(),
			"status":   status.String(),
			"error":    e.Message,
		}).Error("Group service failed to finalize session")
		return e
	}

	logrus.WithFields(logrus.Fields{
		"function": "Client.Destroy",
		"handle":   s.handle.String(),
		"sessions": c.registry.Len(),
	}).Info("Session destroyed")

	return nil
}

// Close destroys every registered session. Sessions destroyed concurrently
// by other goroutines are skipped.
func (c *Client) Close() error {
	var errs []error
	for _, s := range c.registry.snapshot() {
		if s.client != c {
			continue
		}
		if err := c.Destroy(s); err != nil && !errors.Is(err, ErrDoubleDestroy) {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close group client: %w", errors.Join(errs...))
	}
	return nil
}
