// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/internal/pcmbridge"
	"github.com/ik5/mediakit/media"
)

// Writer encodes planar audio buffers as integer PCM WAV.
type Writer struct {
	enc      *wav.Encoder
	spec     audio.SignalSpec
	bitDepth int
	started  bool
}

// NewWriter starts a WAV file on w. bitDepth is 8, 16, 24 or 32.
func NewWriter(w io.WriteSeeker, spec audio.SignalSpec, bitDepth int) (*Writer, error) {
	if _, ok := pcmbridge.IntCodec(bitDepth, true); !ok {
		return nil, ErrUnsupportedBitDepth
	}
	if spec.Rate == 0 || spec.Channels.Count() == 0 {
		return nil, media.Unsupported("wav: writer needs a sample rate and channels")
	}

	return &Writer{
		enc:      wav.NewEncoder(w, int(spec.Rate), bitDepth, spec.Channels.Count(), formatPCM),
		spec:     spec,
		bitDepth: bitDepth,
	}, nil
}

// Write appends the frames of buf, which must match the writer's spec.
func (w *Writer) Write(buf *audio.Buffer) error {
	if buf.Spec() != w.spec {
		return media.Unsupported("wav: buffer spec differs from writer spec")
	}
	if buf.Frames() == 0 {
		return nil
	}

	ib := buf.AsIntBuffer(w.bitDepth)
	if w.bitDepth == 8 {
		for i, v := range ib.Data {
			ib.Data[i] = v + 128
		}
	}
	return w.write(ib)
}

func (w *Writer) write(ib *goaudio.IntBuffer) error {
	w.started = true
	if err := w.enc.Write(ib); err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	return nil
}

// Close patches the chunk sizes. It does not close the underlying writer.
func (w *Writer) Close() error {
	if !w.started {
		if err := w.write(&goaudio.IntBuffer{Format: w.spec.Format()}); err != nil {
			return err
		}
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	return nil
}

// WriteWAV16 writes interleaved 16-bit samples as a complete WAV file.
func WriteWAV16(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	if channels < 1 || len(samples)%channels != 0 {
		return media.Unsupported("wav: samples are not a whole number of frames")
	}

	enc := wav.NewEncoder(w, sampleRate, 16, channels, formatPCM)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	return nil
}
