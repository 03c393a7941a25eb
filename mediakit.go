// SPDX-License-Identifier: EPL-2.0

package mediakit

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ik5/mediakit/codecs/mp3"
	"github.com/ik5/mediakit/codecs/pcm"
	"github.com/ik5/mediakit/codecs/vorbis"
	"github.com/ik5/mediakit/formats/aiff"
	"github.com/ik5/mediakit/formats/isomp4"
	mp3format "github.com/ik5/mediakit/formats/mp3"
	oggformat "github.com/ik5/mediakit/formats/vorbis"
	"github.com/ik5/mediakit/formats/wav"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
	"github.com/ik5/mediakit/stream"
)

// DefaultRegistry returns a registry holding every bundled container reader.
// ISO/MP4 is registered first so it wins ties against the PCM bridges.
func DefaultRegistry() *probe.Registry {
	reg := probe.NewRegistry()
	for _, d := range []probe.Descriptor{
		isomp4.Descriptor(),
		wav.Descriptor(),
		aiff.Descriptor(),
		mp3format.Descriptor(),
		oggformat.Descriptor(),
	} {
		if err := reg.Register(d); err != nil {
			panic(fmt.Sprintf("mediakit: register %s: %v", d.ShortName, err))
		}
	}

	return reg
}

// DefaultCodecs returns a registry holding every bundled decoder.
func DefaultCodecs() *probe.CodecRegistry {
	reg := probe.NewCodecRegistry()
	for _, d := range pcm.Descriptors() {
		reg.Register(d)
	}
	reg.Register(mp3.Descriptor())
	reg.Register(vorbis.Descriptor())

	return reg
}

// Options bundles the knobs of every layer Open touches. Nil registries fall
// back to the defaults.
type Options struct {
	Stream   stream.MediaSourceStreamOptions
	Probe    probe.Options
	Format   media.FormatOptions
	Metadata media.MetadataOptions
	Decoder  media.DecoderOptions

	Formats *probe.Registry
	Codecs  *probe.CodecRegistry
	Logger  *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Stream:   stream.DefaultMediaSourceStreamOptions(),
		Probe:    probe.DefaultOptions(),
		Format:   media.DefaultFormatOptions(),
		Metadata: media.DefaultMetadataOptions(),
		Decoder:  media.DefaultDecoderOptions(),
	}
}

func (o Options) log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.Default()
}

func (o Options) formats() *probe.Registry {
	if o.Formats != nil {
		return o.Formats
	}

	return DefaultRegistry()
}

func (o Options) codecs() *probe.CodecRegistry {
	if o.Codecs != nil {
		return o.Codecs
	}

	return DefaultCodecs()
}

// Open probes src and returns the first reader that accepts it.
func Open(src media.MediaSource, hint probe.Hint, opts Options) (*probe.Result, error) {
	log := opts.log()
	if opts.Probe.Logger == nil {
		opts.Probe.Logger = log
	}
	if opts.Format.Logger == nil {
		opts.Format.Logger = log
	}

	mss := stream.NewMediaSourceStream(src, opts.Stream)
	res, err := probe.New(opts.formats(), opts.Probe).Format(hint, mss, opts.Format, opts.Metadata)
	if err != nil {
		return nil, err
	}

	log.Debug("mediakit: opened", "format", res.Descriptor.ShortName, "tracks", len(res.Format.Tracks()))

	return res, nil
}

// File is a probed file. Close releases the file handle.
type File struct {
	*probe.Result

	f *os.File
}

func (f *File) Close() error {
	return f.f.Close()
}

// OpenFile opens path and probes it, using the extension as a hint.
func OpenFile(path string, opts Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, media.IOError(err)
	}

	res, err := Open(stream.NewFileSource(f), probe.HintFromPath(path), opts)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &File{Result: res, f: f}, nil
}

// NewDecoder builds a decoder for track using opts.Codecs.
func NewDecoder(track *media.Track, opts Options) (media.Decoder, error) {
	if track == nil {
		return nil, ErrNoTrack
	}

	return opts.codecs().Make(&track.CodecParams, opts.Decoder)
}
