// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/mediakit/media"
)

// identHeader is a stereo 44.1 kHz identification header.
func identHeader() []byte {
	b := []byte("\x01vorbis")
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = append(b, 2)
	b = binary.LittleEndian.AppendUint32(b, 44100)
	b = append(b, make([]byte, 12)...)
	b = append(b, 0xb8, 0x01)

	return b
}

func commentHeader() []byte {
	b := []byte("\x03vorbis")
	b = binary.LittleEndian.AppendUint32(b, 4)
	b = append(b, "test"...)
	b = binary.LittleEndian.AppendUint32(b, 0)

	return append(b, 1)
}

func lace(packets ...[]byte) []byte {
	out := []byte{byte(len(packets) - 1)}
	for _, p := range packets[:len(packets)-1] {
		n := len(p)
		for n >= 255 {
			out = append(out, 255)
			n -= 255
		}
		out = append(out, byte(n))
	}
	for _, p := range packets {
		out = append(out, p...)
	}

	return out
}

func TestSplitXiphLacing(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte{7}, 300)
	packets, err := splitXiphLacing(lace([]byte{1, 2}, long, []byte{3}))
	require.NoError(t, err)
	require.Len(t, packets, 3)
	assert.Equal(t, []byte{1, 2}, packets[0])
	assert.Equal(t, long, packets[1])
	assert.Equal(t, []byte{3}, packets[2])

	packets, err = splitXiphLacing([]byte{0, 9, 9})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{9, 9}}, packets)

	for name, b := range map[string][]byte{
		"empty":          nil,
		"missing lace":   {2, 255},
		"short payloads": {1, 10, 1, 2},
	} {
		_, err := splitXiphLacing(b)
		assert.ErrorIs(t, err, media.ErrDecode, name)
	}
}

func TestNewDecoder_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewDecoder(media.NewCodecParameters(media.CodecOpus), media.DefaultDecoderOptions())
	assert.ErrorIs(t, err, media.ErrUnsupported)

	tests := map[string][]byte{
		"no extra data":   nil,
		"two headers":     lace(identHeader(), commentHeader()),
		"bad setup":       lace(identHeader(), commentHeader(), []byte("\x05vorbis\x00")),
		"not vorbis":      lace([]byte("\x01opus!!!"), commentHeader(), []byte("\x05vorbis")),
		"header mismatch": lace(commentHeader(), identHeader(), commentHeader()),
	}
	for name, extra := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := media.NewCodecParameters(media.CodecVorbis).WithExtraData(extra)
			_, err := NewDecoder(p, media.DefaultDecoderOptions())
			assert.ErrorIs(t, err, media.ErrDecode)
		})
	}
}

func TestDescriptor(t *testing.T) {
	t.Parallel()

	d := Descriptor()
	assert.Equal(t, media.CodecVorbis, d.Codec)
	assert.Equal(t, "Vorbis", d.LongName)
}
