package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/opd-ai/groupcast/interfaces"
	"github.com/opd-ai/groupcast/limits"
)

// ConnectionIDSize is the length of the client-chosen connection identifier
// sent with every initialize request.
const ConnectionIDSize = 16

// ErrMalformedPacket indicates a packet body that does not match its type.
var ErrMalformedPacket = errors.New("malformed packet")

// InitializeRequest opens a session on a fresh connection.
type InitializeRequest struct {
	Version      interfaces.ModelVersion
	ConnectionID [ConnectionIDSize]byte
}

// InitializeResponse carries the handle allocated by the daemon.
type InitializeResponse struct {
	Status interfaces.Status
	Handle interfaces.Handle
}

// MulticastRequest carries one atomic multicast.
type MulticastRequest struct {
	Mode    interfaces.OrderingMode
	Buffers [][]byte
}

// EncodeInitialize builds an initialize packet.
// Format: [model version (1 byte)][connection id (16 bytes)]
func EncodeInitialize(req InitializeRequest) *Packet {
	data := make([]byte, 1+ConnectionIDSize)
	data[0] = byte(req.Version)
	copy(data[1:], req.ConnectionID[:])
	return &Packet{PacketType: PacketInitialize, Data: data}
}

// DecodeInitialize parses an initialize packet body.
func DecodeInitialize(p *Packet) (InitializeRequest, error) {
	var req InitializeRequest
	if err := expectType(p, PacketInitialize); err != nil {
		return req, err
	}
	if len(p.Data) != 1+ConnectionIDSize {
		return req, fmt.Errorf("%w: initialize body is %d bytes", ErrMalformedPacket, len(p.Data))
	}
	req.Version = interfaces.ModelVersion(p.Data[0])
	copy(req.ConnectionID[:], p.Data[1:])
	return req, nil
}

// EncodeInitializeResponse builds an initialize response packet.
// Format: [status (4 bytes)][handle (8 bytes)]
func EncodeInitializeResponse(resp InitializeResponse) *Packet {
	data := make([]byte, 12)
	binary.BigEndian.PutUint32(data[0:4], uint32(resp.Status))
	binary.BigEndian.PutUint64(data[4:12], uint64(resp.Handle))
	return &Packet{PacketType: PacketInitializeResponse, Data: data}
}

// DecodeInitializeResponse parses an initialize response body.
func DecodeInitializeResponse(p *Packet) (InitializeResponse, error) {
	var resp InitializeResponse
	if err := expectType(p, PacketInitializeResponse); err != nil {
		return resp, err
	}
	if len(p.Data) != 12 {
		return resp, fmt.Errorf("%w: initialize response body is %d bytes", ErrMalformedPacket, len(p.Data))
	}
	resp.Status = interfaces.Status(binary.BigEndian.Uint32(p.Data[0:4]))
	resp.Handle = interfaces.Handle(binary.BigEndian.Uint64(p.Data[4:12]))
	return resp, nil
}

// EncodeJoin builds a join packet. The name is validated against
// limits.MaxGroupNameLen so the daemon never sees an oversized name.
// Format: [name length (4 bytes)][name]
func EncodeJoin(group []byte) (*Packet, error) {
	if err := limits.ValidateGroupName(group); err != nil {
		return nil, err
	}
	data := make([]byte, 4+len(group))
	binary.BigEndian.PutUint32(data[0:4], uint32(len(group)))
	copy(data[4:], group)
	return &Packet{PacketType: PacketJoin, Data: data}, nil
}

// DecodeJoin parses a join packet body and returns the group name.
func DecodeJoin(p *Packet) ([]byte, error) {
	if err := expectType(p, PacketJoin); err != nil {
		return nil, err
	}
	if len(p.Data) < 4 {
		return nil, fmt.Errorf("%w: join body too short", ErrMalformedPacket)
	}
	n := binary.BigEndian.Uint32(p.Data[0:4])
	if uint64(n) != uint64(len(p.Data)-4) {
		return nil, fmt.Errorf("%w: join name length %d, body carries %d", ErrMalformedPacket, n, len(p.Data)-4)
	}
	group := make([]byte, n)
	copy(group, p.Data[4:])
	if err := limits.ValidateGroupName(group); err != nil {
		return nil, err
	}
	return group, nil
}

// EncodeMulticast builds a multicast packet. The encoded body must fit in
// one frame; callers map limits.ErrFrameTooLarge to a too-big status.
// Format: [mode (1 byte)][count (4 bytes)] then per buffer [length (4 bytes)][bytes]
func EncodeMulticast(req MulticastRequest) (*Packet, error) {
	if err := limits.ValidateBufferCount(len(req.Buffers)); err != nil {
		return nil, err
	}

	size := 5
	for _, buf := range req.Buffers {
		size += 4 + len(buf)
		// The packet type byte is part of the frame as well.
		if err := limits.ValidateFrameSize(size + 1); err != nil {
			return nil, err
		}
	}

	data := make([]byte, size)
	data[0] = byte(req.Mode)
	binary.BigEndian.PutUint32(data[1:5], uint32(len(req.Buffers)))
	off := 5
	for _, buf := range req.Buffers {
		binary.BigEndian.PutUint32(data[off:off+4], uint32(len(buf)))
		off += 4
		off += copy(data[off:], buf)
	}
	return &Packet{PacketType: PacketMulticast, Data: data}, nil
}

// DecodeMulticast parses a multicast packet body.
func DecodeMulticast(p *Packet) (MulticastRequest, error) {
	var req MulticastRequest
	if err := expectType(p, PacketMulticast); err != nil {
		return req, err
	}
	if len(p.Data) < 5 {
		return req, fmt.Errorf("%w: multicast body too short", ErrMalformedPacket)
	}
	req.Mode = interfaces.OrderingMode(p.Data[0])
	count := binary.BigEndian.Uint32(p.Data[1:5])
	if count == 0 {
		return req, fmt.Errorf("%w: multicast carries no buffers", ErrMalformedPacket)
	}

	rest := p.Data[5:]
	// Every buffer needs at least its length prefix.
	if uint64(count)*4 > uint64(len(rest)) {
		return req, fmt.Errorf("%w: multicast count %d exceeds body", ErrMalformedPacket, count)
	}
	req.Buffers = make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 4 {
			return req, fmt.Errorf("%w: buffer %d header truncated", ErrMalformedPacket, i)
		}
		n := binary.BigEndian.Uint32(rest[0:4])
		rest = rest[4:]
		if uint64(n) > uint64(len(rest)) {
			return req, fmt.Errorf("%w: buffer %d truncated", ErrMalformedPacket, i)
		}
		buf := make([]byte, n)
		copy(buf, rest[:n])
		req.Buffers = append(req.Buffers, buf)
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return req, fmt.Errorf("%w: %d trailing bytes", ErrMalformedPacket, len(rest))
	}
	return req, nil
}

// EncodeFinalize builds a finalize packet.
func EncodeFinalize() *Packet {
	return &Packet{PacketType: PacketFinalize, Data: []byte{}}
}

// EncodeStatus builds a status response packet.
// Format: [status (4 bytes)]
func EncodeStatus(status interfaces.Status) *Packet {
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, uint32(status))
	return &Packet{PacketType: PacketStatusResponse, Data: data}
}

// DecodeStatus parses a status response body.
func DecodeStatus(p *Packet) (interfaces.Status, error) {
	if err := expectType(p, PacketStatusResponse); err != nil {
		return 0, err
	}
	if len(p.Data) != 4 {
		return 0, fmt.Errorf("%w: status body is %d bytes", ErrMalformedPacket, len(p.Data))
	}
	return interfaces.Status(binary.BigEndian.Uint32(p.Data)), nil
}

func expectType(p *Packet, want PacketType) error {
	if p == nil {
		return fmt.Errorf("%w: nil packet", ErrMalformedPacket)
	}
	if p.PacketType != want {
		return fmt.Errorf("%w: expected %s, got %s", ErrMalformedPacket, want, p.PacketType)
	}
	return nil
}
