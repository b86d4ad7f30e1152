// Package signaling implements the WebSocket signaling surface: session
// lifecycle, room membership, publisher discovery, and relaying of opaque
// offer/answer/candidate payloads between peers.
//
// Media never flows through this package. Clients use the relayed messages to
// negotiate a direct channel and exchange audio/video there.
package signaling
