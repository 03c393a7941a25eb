// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ik5/mediakit/formats/wav"
	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

// Example_roundTrip writes a stereo file and reads it back.
func Example_roundTrip() {
	dir, err := os.MkdirTemp("", "wav-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	name := filepath.Join(dir, "tone.wav")
	f, err := os.Create(name)
	if err != nil {
		fmt.Println(err)
		return
	}
	samples := []int16{-1000, 1000, -500, 500, 0, 0}
	if err := wav.WriteWAV16(f, 8000, 2, samples); err != nil {
		fmt.Println(err)
		return
	}
	f.Close()

	in, err := os.Open(name)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer in.Close()

	mss := stream.NewMediaSourceStream(stream.NewFileSource(in), stream.DefaultMediaSourceStreamOptions())
	rd, err := wav.NewReader(mss, media.DefaultFormatOptions())
	if err != nil {
		fmt.Println(err)
		return
	}

	track := rd.DefaultTrack()
	fmt.Println("codec:", track.CodecParams.Codec)
	fmt.Println("rate:", track.CodecParams.SampleRate)
	fmt.Println("channels:", track.CodecParams.Channels)
	fmt.Println("frames:", track.CodecParams.NFrames)

	pkt, err := rd.NextPacket()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("packet bytes:", len(pkt.Data))
	// Output:
	// codec: pcm_s16le
	// rate: 8000
	// channels: FL|FR
	// frames: 3
	// packet bytes: 12
}
