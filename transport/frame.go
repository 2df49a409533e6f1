package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opd-ai/groupcast/limits"
)

// frameHeaderSize is the 4-byte big-endian length prefix on every frame.
const frameHeaderSize = 4

// createLengthPrefix creates a 4-byte length prefix for the data.
func createLengthPrefix(data []byte) []byte {
	prefix := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(prefix, uint32(len(data)))
	return prefix
}

// WriteFrame writes data to w preceded by its length.
func WriteFrame(w io.Writer, data []byte) error {
	if err := limits.ValidateFrameSize(len(data)); err != nil {
		return err
	}

	// One write keeps the prefix and payload together on the stream.
	buf := make([]byte, 0, frameHeaderSize+len(data))
	buf = append(buf, createLengthPrefix(data)...)
	buf = append(buf, data...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r. Partial reads are
// handled with io.ReadFull; a length over limits.MaxFrameSize is rejected
// before any payload is buffered.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header)
	if size > limits.MaxFrameSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", limits.ErrFrameTooLarge, size, limits.MaxFrameSize)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return data, nil
}
