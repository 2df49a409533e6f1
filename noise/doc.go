// Package noise provides the Noise Protocol Framework handshake that secures
// connections between a groupcast client and a remote group daemon.
//
// The handshake uses the flynn/noise library with ChaCha20-Poly1305
// encryption, SHA256 hashing and Curve25519 key exchange.
//
// # NK Pattern
//
// A client is configured with the daemon's static public key and stays
// anonymous itself; daemon access control happens above this layer. NK fits
// that shape with a single round trip:
//
//	Initiator (client)                     Responder (daemon)
//	──────────────────                     ──────────────────
//	-> e, es
//	                                       <- e, ee
//	[session established]
//
// Example usage:
//
//	hs, err := noise.NewInitiator(daemonPub)
//	if err != nil {
//	    return err
//	}
//	msg, err := hs.WriteMessage(nil)
//	// send msg, receive reply
//	if _, err := hs.ReadMessage(reply); err != nil {
//	    return err
//	}
//	send, recv, err := hs.GetCipherStates()
//
// Daemon keys are generated with [GenerateKeypair] and distributed as 64
// hex characters; [ParsePublicKey] decodes them.
package noise
