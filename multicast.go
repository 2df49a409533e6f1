package groupcast

import (
	"fmt"

	"github.com/opd-ai/groupcast/interfaces"
	"github.com/opd-ai/groupcast/limits"
	"github.com/sirupsen/logrus"
)

// SendMessage multicasts a single buffer. It is Send with one argument.
func (s *Session) SendMessage(message []byte) error {
	return s.Send(message)
}

// Send multicasts buffers as one atomic message to every group the session
// has joined, with agreed ordering. Either every member receives the whole
// sequence or nobody receives any of it.
//
// An empty sequence, or more than limits.MaxBufferCount buffers, fails with
// KindInvalidMessage before the service is contacted. Zero-length buffers
// inside a sequence are allowed.
func (s *Session) Send(buffers ...[]byte) error {
	if err := limits.ValidateBufferCount(len(buffers)); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Session.Send",
			"handle":   s.handle.String(),
			"buffers":  len(buffers),
		}).Warn("Rejected multicast message")
		return &Error{
			Kind:    KindInvalidMessage,
			Op:      OpSend,
			Handle:  s.handle,
			Message: fmt.Sprintf("message must contain 1 to %d buffers", limits.MaxBufferCount),
			Err:     err,
		}
	}

	// The staged sequence is what the service sees; it is cleared on every
	// return path so no buffer outlives the call through it.
	staged := make([][]byte, len(buffers))
	copy(staged, buffers)
	defer clear(staged)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return s.destroyedError(OpSend)
	}

	status := s.client.service.Multicast(s.handle, interfaces.OrderAgreed, staged)
	if !status.IsOK() {
		e := s.client.translator.Translate(OpSend, status)
		e.Handle = s.handle
		logrus.WithFields(logrus.Fields{
			"function": "Session.Send",
			"handle":   s.handle.String(),
			"buffers":  len(staged),
			"status":   status.String(),
			"error":    e.Message,
		}).Error("Group service rejected multicast")
		return e
	}

	logrus.WithFields(logrus.Fields{
		"function": "Session.Send",
		"handle":   s.handle.String(),
		"buffers":  len(staged),
		"bytes":    totalSize(staged),
	}).Debug("Multicast sent")

	return nil
}

// Send resolves handle through the registry and multicasts on that session.
func (c *Client) Send(handle interfaces.Handle, buffers ...[]byte) error {
	s, err := c.registry.FindByHandle(handle)
	if err != nil {
		return err
	}
	return s.Send(buffers...)
}

func totalSize(buffers [][]byte) int {
	n := 0
	for _, b := range buffers {
		n += len(b)
	}
	return n
}
