package groupcast

import (
	"fmt"

	"github.com/opd-ai/groupcast/interfaces"
	"github.com/opd-ai/groupcast/limits"
	"github.com/sirupsen/logrus"
)

// Join adds the session to the named process group.
//
// The name must be 1 to limits.MaxGroupNameLen bytes; anything else fails
// with KindInvalidGroupName before the service is contacted. A service
// failure is translated and leaves the joined groups unchanged. Joining the
// same group twice is forwarded to the service, which decides the outcome.
func (s *Session) Join(group []byte) error {
	if err := limits.ValidateGroupName(group); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Session.Join",
			"handle":   s.handle.String(),
			"length":   len(group),
			"max":      limits.MaxGroupNameLen,
		}).Warn("Rejected group name")
		return &Error{
			Kind:    KindInvalidGroupName,
			Op:      OpJoin,
			Handle:  s.handle,
			Message: fmt.Sprintf("group name must be 1 to %d bytes", limits.MaxGroupNameLen),
			Err:     err,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return s.destroyedError(OpJoin)
	}

	status := s.client.service.Join(s.handle, group)
	if !status.IsOK() {
		e := s.client.translator.Translate(OpJoin, status)
		e.Group = string(group)
		e.Handle = s.handle
		logrus.WithFields(logrus.Fields{
			"function": "Session.Join",
			"handle":   s.handle.String(),
			"group":    string(group),
			"status":   status.String(),
			"error":    e.Message,
		}).Error("Group service rejected join")
		return e
	}

	s.addGroup(group)

	logrus.WithFields(logrus.Fields{
		"function": "Session.Join",
		"handle":   s.handle.String(),
		"group":    string(group),
		"groups":   len(s.groups),
	}).Info("Joined group")

	return nil
}

// Join resolves handle through the registry and joins group on that session.
func (c *Client) Join(handle interfaces.Handle, group []byte) error {
	s, err := c.registry.FindByHandle(handle)
	if err != nil {
		return err
	}
	return s.Join(group)
}
