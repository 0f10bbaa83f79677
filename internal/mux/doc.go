// Package mux owns the network entity multiplexer.
//
// Ownership boundary:
// - entity directory (id -> handler), exclusively owned by one Multiplexer
// - inbound demux: wire message -> header strip -> handler callback
// - outbound mux: entity egress -> header inject -> session send (unicast/broadcast)
// - observer events for every accepted, rejected and sent frame
//
// Session lifecycle and per-entity session bookkeeping live outside this
// package; the multiplexer only holds session references for the duration
// of one call.
package mux
