// Package transport implements the wire protocol spoken between a groupcast
// client and a group daemon.
//
// Every packet is one type byte followed by a type-specific body, carried in
// a frame with a 4-byte big-endian length prefix:
//
//	[length (4 bytes)][packet type (1 byte)][body]
//
// A connection carries exactly one session. The client sends an initialize
// request first and receives the session handle; every later request (join,
// multicast, finalize) is answered by one status response.
//
// Connections to a remote daemon can be encrypted with [ClientHandshake],
// which runs a Noise NK handshake and returns a [SecureConn]. Plain unix
// socket connections use [StreamConn].
//
// Example:
//
//	conn := transport.NewStreamConn(netConn)
//	packet, err := transport.EncodeJoin([]byte("cluster-a"))
//	if err != nil {
//	    return err
//	}
//	if err := conn.WritePacket(packet); err != nil {
//	    return err
//	}
//	reply, err := conn.ReadPacket()
//	status, err := transport.DecodeStatus(reply)
package transport
