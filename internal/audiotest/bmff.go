// SPDX-License-Identifier: EPL-2.0

package audiotest

import "encoding/binary"

var be = binary.BigEndian

// BoxWriter builds ISO base media boxes in memory for tests. Box sizes are
// backpatched when a box is closed.
type BoxWriter struct {
	buf   []byte
	stack []int
}

func NewBoxWriter() *BoxWriter {
	return &BoxWriter{buf: make([]byte, 0, 1024)}
}

// Bytes returns the written data.
func (w *BoxWriter) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *BoxWriter) Len() int { return len(w.buf) }

// StartBox begins a box. typ must be 4 bytes.
func (w *BoxWriter) StartBox(typ string) *BoxWriter {
	w.stack = append(w.stack, len(w.buf))
	w.buf = be.AppendUint32(w.buf, 0) // placeholder size
	w.buf = append(w.buf, typ[:4]...)

	return w
}

// StartFullBox begins a box with a version and flags header.
func (w *BoxWriter) StartFullBox(typ string, version uint8, flags uint32) *BoxWriter {
	w.StartBox(typ)

	return w.U32(uint32(version)<<24 | flags&0xffffff)
}

// EndBox closes the innermost open box.
func (w *BoxWriter) EndBox() *BoxWriter {
	start := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	be.PutUint32(w.buf[start:], uint32(len(w.buf)-start))

	return w
}

func (w *BoxWriter) U8(v uint8) *BoxWriter {
	w.buf = append(w.buf, v)
	return w
}

func (w *BoxWriter) U16(v uint16) *BoxWriter {
	w.buf = be.AppendUint16(w.buf, v)
	return w
}

func (w *BoxWriter) U24(v uint32) *BoxWriter {
	w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
	return w
}

func (w *BoxWriter) U32(v uint32) *BoxWriter {
	w.buf = be.AppendUint32(w.buf, v)
	return w
}

func (w *BoxWriter) U64(v uint64) *BoxWriter {
	w.buf = be.AppendUint64(w.buf, v)
	return w
}

func (w *BoxWriter) Raw(p []byte) *BoxWriter {
	w.buf = append(w.buf, p...)
	return w
}

// Zeros appends n zero bytes.
func (w *BoxWriter) Zeros(n int) *BoxWriter {
	w.buf = append(w.buf, make([]byte, n)...)
	return w
}

// Text appends s without a terminator.
func (w *BoxWriter) Text(s string) *BoxWriter {
	w.buf = append(w.buf, s...)
	return w
}

// PatchU32 overwrites the four bytes at off.
func (w *BoxWriter) PatchU32(off int, v uint32) {
	be.PutUint32(w.buf[off:], v)
}

// PatchU64 overwrites the eight bytes at off.
func (w *BoxWriter) PatchU64(off int, v uint64) {
	be.PutUint64(w.buf[off:], v)
}

// Box writes a complete box holding payload.
func (w *BoxWriter) Box(typ string, payload []byte) *BoxWriter {
	return w.StartBox(typ).Raw(payload).EndBox()
}
