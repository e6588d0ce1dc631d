// Package protocol implements the binary wire format between a vdom engine
// and a remote renderer.
//
// Engine to renderer, the protocol carries batches of vdom.Mutation values.
// Renderer to engine, it carries event submissions naming the target
// ElementID. Both directions share a small framing layer and a handful of
// control messages for the handshake, acknowledgments, keepalive and
// errors.
//
// # Wire Format
//
// Every message is a frame with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Encoding
//
//   - Varint: unsigned integers, 7 bits per byte (ElementIDs, counts, seqs)
//   - ZigZag: signed integers as unsigned varints
//   - Length-prefixed: strings and byte slices
//   - Tagged values: attribute values and event data carry a one-byte tag
//
// # Edits
//
// An edit batch is the output of one engine tick:
//
//	[Seq: varint][Count: varint]{[Op: 1 byte][ID: varint][operands...]}
//
// SetText on element 3 encodes in 4 bytes plus the text.
package protocol
