// Package entity provides the built-in network entity kinds and the
// type-keyed factory the multiplexer uses at REGISTER time.
//
// Ownership boundary:
// - per-entity session sets (who receives this entity's updates)
// - entity egress through the multiplexer's Outbound operations
// - entity-owned payload layouts (tlv fields)
package entity
