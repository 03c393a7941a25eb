// SPDX-License-Identifier: EPL-2.0

package probe

import (
	"sync"

	"github.com/ik5/mediakit/media"
)

// MakeDecoder builds a decoder for a track.
type MakeDecoder func(params *media.CodecParameters, opts media.DecoderOptions) (media.Decoder, error)

// CodecDescriptor describes a decoder implementation.
type CodecDescriptor struct {
	Codec    media.CodecType
	LongName string
	Make     MakeDecoder
}

// CodecRegistry maps codec types to decoders.
type CodecRegistry struct {
	codecs map[media.CodecType]CodecDescriptor

	mtx *sync.Mutex
}

func NewCodecRegistry() *CodecRegistry {
	return &CodecRegistry{
		codecs: make(map[media.CodecType]CodecDescriptor),
		mtx:    &sync.Mutex{},
	}
}

// Register adds d, replacing any decoder registered for the same codec.
func (r *CodecRegistry) Register(d CodecDescriptor) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[d.Codec] = d
}

func (r *CodecRegistry) Get(codec media.CodecType) (CodecDescriptor, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[codec]
	return d, ok
}

// Make instantiates the decoder registered for params.Codec.
func (r *CodecRegistry) Make(params *media.CodecParameters, opts media.DecoderOptions) (media.Decoder, error) {
	d, ok := r.Get(params.Codec)
	if !ok || d.Make == nil {
		return nil, media.Unsupported("core (codec): unsupported codec")
	}

	return d.Make(params, opts)
}
