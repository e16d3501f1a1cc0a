// Package protocol owns the engine wire contract and parsing primitives.
//
// Ownership boundary:
// - handshake line `<id>|<width>|<height>`
// - command line `<id>:<direction>`
// - direction tokens
// - line framing (see package frame)
//
// Grid frames are decoded by package grid; this package only moves lines.
package protocol
