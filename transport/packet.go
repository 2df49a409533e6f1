package transport

import (
	"errors"
	"fmt"
)

// PacketType identifies the type of a group daemon packet.
type PacketType byte

const (
	// Session requests, client to daemon
	PacketInitialize PacketType = iota + 1
	PacketJoin
	PacketMulticast
	PacketFinalize

	// Daemon responses
	PacketInitializeResponse
	PacketStatusResponse

	// Noise Protocol Framework packet types
	PacketNoiseHandshake PacketType = 250
	PacketNoiseMessage   PacketType = 251
)

var packetTypeNames = map[PacketType]string{
	PacketInitialize:         "initialize",
	PacketJoin:               "join",
	PacketMulticast:          "multicast",
	PacketFinalize:           "finalize",
	PacketInitializeResponse: "initialize_response",
	PacketStatusResponse:     "status_response",
	PacketNoiseHandshake:     "noise_handshake",
	PacketNoiseMessage:       "noise_message",
}

func (t PacketType) String() string {
	if name, ok := packetTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("packet(%d)", byte(t))
}

// Packet represents one group daemon protocol packet.
type Packet struct {
	PacketType PacketType
	Data       []byte
}

// Serialize converts a packet to a byte slice for transmission.
func (p *Packet) Serialize() ([]byte, error) {
	if p.Data == nil {
		return nil, errors.New("packet data is nil")
	}

	// Format: [packet type (1 byte)][data (variable length)]
	result := make([]byte, 1+len(p.Data))
	result[0] = byte(p.PacketType)
	copy(result[1:], p.Data)

	return result, nil
}

// ParsePacket converts a byte slice to a Packet structure.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < 1 {
		return nil, errors.New("packet too short")
	}

	packet := &Packet{
		PacketType: PacketType(data[0]),
		Data:       make([]byte, len(data)-1),
	}

	copy(packet.Data, data[1:])

	return packet, nil
}
