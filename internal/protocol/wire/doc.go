// Package wire owns the network entity frame contract.
//
// Ownership boundary:
// - message kind taxonomy and tag values
// - per-kind header encode/decode
// - raw frame parse/marshal (kind tag + header + payload)
//
// Length prefixing belongs to the transport (see protocol/frame); a wire
// message is everything after it.
package wire
