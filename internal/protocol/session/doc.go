// Package session owns one engine session end to end.
//
// Ownership boundary:
// - handshake read
// - per-turn frame decode -> decision -> command write
// - isolation of decision failures
// - protocol/diagnostic channel separation
//
// Lifecycle order:
// - handshake -> turn* -> end (input exhausted or pawn lost)
//
// The protocol channel carries command lines and nothing else. Every other
// byte the loop produces goes to the diagnostic channel.
package session
