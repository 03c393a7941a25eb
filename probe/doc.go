// SPDX-License-Identifier: EPL-2.0

// Package probe identifies container formats and looks up decoders.
//
// A Registry lists format descriptors. Probe.Format scores each descriptor
// against the leading bytes of a stream: every marker found scores 100, a
// matching file extension or MIME type scores 25 each. Candidates are tried
// from the highest score down, ties in registration order, and a candidate
// that rejects the stream as unsupported or malformed hands over to the next.
//
// CodecRegistry maps codec types to decoder constructors.
package probe
