// Package wsproto implements the WebSocket framing state machine described
// here: fragment assembly and emission, masking enforcement, length
// encoding, and the policing rules that distinguish a protocol violation
// from an ordinary close. It is a from-scratch byte-level codec rather than
// a wrapper over a higher-level WebSocket client library, because framing
// is explicitly core to this system rather than an external collaborator.
package wsproto
