// SPDX-License-Identifier: EPL-2.0

// Package bits reads bit fields from byte buffers and byte streams.
//
// ReaderLtr reads most significant bit first, the order used by H.264, H.265
// and AAC. ReaderRtl reads least significant bit first within each byte, and
// the first bit read becomes the least significant bit of the result.
//
// Running out of input is reported as a media io error wrapping
// io.ErrUnexpectedEOF.
package bits
