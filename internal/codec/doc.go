// Package codec is the CBOR encoding used on the device node socket.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// request always produces the same bytes. CBOR values are self-delimiting,
// which lets a session stream requests and responses back to back on one
// connection without extra framing.
package codec
