// SPDX-License-Identifier: EPL-2.0

package cmd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ik5/mediakit"
	"github.com/ik5/mediakit/audio"
	"github.com/ik5/mediakit/checksum"
	"github.com/ik5/mediakit/formats/wav"
	"github.com/ik5/mediakit/media"
)

const decodeChunkFrames = 1024

type decodeFlags struct {
	track int64
	seek  time.Duration
	out   string
	bits  int
	md5   bool
}

func (a *app) decodeCmd() *cobra.Command {
	var df decodeFlags

	c := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode an audio track and report what came out",
		Long: `Decode an audio track to the end, reporting the number of frames, the
peak level and, when the codec supports it, the verification result.

With --out the decoded audio is also written as integer PCM WAV.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDecode(cmd.OutOrStdout(), args[0], df)
		},
	}
	c.Flags().Int64VarP(&df.track, "track", "t", -1, "track id to decode (default track if unset)")
	c.Flags().DurationVar(&df.seek, "seek", 0, "start decoding at this position")
	c.Flags().StringVarP(&df.out, "out", "o", "", "write decoded audio to this WAV file")
	c.Flags().IntVar(&df.bits, "bits", 16, "bit depth of the WAV output (8, 16, 24 or 32)")
	c.Flags().BoolVar(&df.md5, "md5", false, "print the MD5 of the decoded audio as interleaved s16le")

	return c
}

func (a *app) runDecode(w io.Writer, path string, df decodeFlags) error {
	f, opts, err := a.open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	src, err := newTrackSource(f.Format, df.track, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer src.Close()

	if df.seek > 0 {
		if err := src.Seek(df.seek); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	var out *wavSink
	if df.out != "" {
		if out, err = newWAVSink(df.out, src.Spec(), df.bits); err != nil {
			return err
		}
		defer out.abort()
	}

	var sum *checksum.Md5
	if df.md5 {
		sum = checksum.NewMd5()
	}

	ch := src.Channels()
	samples := make([]float32, decodeChunkFrames*ch)
	pcm := make([]byte, 0, 2*len(samples))
	var (
		frames uint64
		peak   float64
	)
	for {
		n, err := src.ReadSamples(samples)
		if n > 0 {
			frames += uint64(n / ch)
			for _, s := range samples[:n] {
				peak = max(peak, math.Abs(float64(s)))
			}
			if out != nil {
				if err := out.write(samples[:n]); err != nil {
					return err
				}
			}
			if sum != nil {
				pcm = pcm[:0]
				for _, s := range samples[:n] {
					pcm = binary.LittleEndian.AppendUint16(pcm, uint16(audio.FloatToS16(s)))
				}
				sum.Process(pcm)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if out != nil {
		if err := out.close(); err != nil {
			return err
		}
	}

	spec := src.Spec()
	fmt.Fprintf(w, "Track %d: %s, %d Hz, %s\n", src.TrackID(), src.Decoder().CodecParams().Codec, spec.Rate, spec.Channels)
	fmt.Fprintf(w, "Decoded %s frames (%s), peak %s\n",
		humanize.Comma(int64(frames)), media.TimeBaseFromRate(spec.Rate).CalcTime(frames), peakDB(peak))
	fmt.Fprintf(w, "Verification: %s\n", verification(src))
	if sum != nil {
		fmt.Fprintf(w, "MD5: %x\n", sum.Sum())
	}
	if out != nil {
		fmt.Fprintf(w, "Wrote %s\n", df.out)
	}

	return nil
}

// newTrackSource decodes track, or the default track when track is negative.
func newTrackSource(reader media.FormatReader, track int64, opts mediakit.Options) (*mediakit.PacketSource, error) {
	if track < 0 {
		return mediakit.Decode(reader, opts)
	}

	t := media.FindTrack(reader.Tracks(), uint32(track))
	if t == nil {
		return nil, fmt.Errorf("track %d: %w", track, media.SeekError(media.SeekInvalidTrack))
	}
	dec, err := mediakit.NewDecoder(t, opts)
	if err != nil {
		return nil, err
	}

	return mediakit.NewPacketSource(reader, dec, t.ID, opts.Logger)
}

func peakDB(peak float64) string {
	if peak == 0 {
		return "-inf dBFS"
	}

	return fmt.Sprintf("%.1f dBFS", 20*math.Log10(peak))
}

func verification(src *mediakit.PacketSource) string {
	res, ok := src.Finalized()
	switch {
	case !ok || !res.Verified:
		return "not available"
	case res.VerifyOK:
		return "passed"
	default:
		return "failed"
	}
}

// wavSink deinterleaves decoded samples into a WAV writer.
type wavSink struct {
	file *os.File
	w    *wav.Writer
	buf  *audio.Buffer
	done bool
}

func newWAVSink(path string, spec audio.SignalSpec, bits int) (*wavSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, media.IOError(err)
	}

	w, err := wav.NewWriter(file, spec, bits)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, err
	}

	return &wavSink{file: file, w: w, buf: audio.NewBuffer(decodeChunkFrames, spec)}, nil
}

func (s *wavSink) write(interleaved []float32) error {
	ch := s.buf.Spec().Channels.Count()
	frames := len(interleaved) / ch

	s.buf.Clear()
	if _, err := s.buf.Render(frames); err != nil {
		return err
	}
	for c, plane := range s.buf.Planes() {
		for i := range plane {
			plane[i] = interleaved[i*ch+c]
		}
	}

	return s.w.Write(s.buf)
}

func (s *wavSink) close() error {
	s.done = true
	if err := s.w.Close(); err != nil {
		_ = s.file.Close()
		return err
	}

	return s.file.Close()
}

// abort removes a half written file.
func (s *wavSink) abort() {
	if s.done {
		return
	}
	_ = s.file.Close()
	_ = os.Remove(s.file.Name())
}
