// Package protocol groups the entity wire contract.
//
// Ownership boundary:
// - wire: kind tags, per-kind headers, message encode/decode
// - frame: length-prefixed stream framing and size limits
// - tlv: typed payload fields used by entity state
// - session: transports that carry wire messages between peers
package protocol
