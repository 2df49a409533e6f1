// Package limits provides centralized size limits for group names, multicast
// messages and wire frames. This ensures every component rejects the same
// inputs before they reach the group service.
package limits

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MaxGroupNameLen is the group service limit for a group name (128 bytes).
	// It matches the fixed name field in the service's join request.
	MaxGroupNameLen = 128

	// MaxBufferCount is the most buffers one multicast may carry. The service
	// counts buffers with a signed 32-bit integer.
	MaxBufferCount = math.MaxInt32

	// MaxFrameSize is the absolute maximum for any wire frame (1MB).
	// This prevents memory exhaustion from a misbehaving daemon.
	MaxFrameSize = 1024 * 1024
)

var (
	// ErrGroupNameEmpty indicates a zero-length group name was provided
	ErrGroupNameEmpty = errors.New("empty group name")

	// ErrGroupNameTooLong indicates a group name exceeds MaxGroupNameLen
	ErrGroupNameTooLong = errors.New("group name too long")

	// ErrMessageEmpty indicates a multicast with no buffers
	ErrMessageEmpty = errors.New("empty message")

	// ErrTooManyBuffers indicates a multicast with more than MaxBufferCount buffers
	ErrTooManyBuffers = errors.New("too many buffers")

	// ErrFrameTooLarge indicates a frame exceeds MaxFrameSize
	ErrFrameTooLarge = errors.New("frame too large")
)

// ValidateGroupName checks 0 < len(name) <= MaxGroupNameLen.
// Returns an error with context including the actual and maximum sizes.
func ValidateGroupName(name []byte) error {
	if len(name) == 0 {
		return ErrGroupNameEmpty
	}
	if len(name) > MaxGroupNameLen {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrGroupNameTooLong, len(name), MaxGroupNameLen)
	}
	return nil
}

// ValidateBufferCount checks 0 < count <= MaxBufferCount.
func ValidateBufferCount(count int) error {
	if count <= 0 {
		return ErrMessageEmpty
	}
	if int64(count) > MaxBufferCount {
		return fmt.Errorf("%w: can not send more than %d buffers, got %d", ErrTooManyBuffers, MaxBufferCount, count)
	}
	return nil
}

// ValidateFrameSize validates a frame length against MaxFrameSize.
func ValidateFrameSize(size int) error {
	if size > MaxFrameSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFrameTooLarge, size, MaxFrameSize)
	}
	return nil
}
