// Package session owns peer transports that carry wire messages.
//
// Ownership boundary:
// - StreamSession: length-prefixed frames over a net.Conn
// - WebSocketSession: one wire message per binary websocket message
// - bounded outbox and send timeout (slow-peer policy)
// - dial with retry/backoff
//
// Both session kinds satisfy mux.Session; neither knows about entities.
package session
