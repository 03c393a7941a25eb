// SPDX-License-Identifier: EPL-2.0

// Package audio holds decoded audio and the streaming stages built on it.
//
// Decoders hand out a Buffer: one float32 plane per channel, described by a
// SignalSpec. Samples are normalised to [-1, 1]. Gapless trimming works on
// whole frames:
//
//	buf := audio.NewBuffer(1152, audio.NewSignalSpec(44100, audio.FrontLeft|audio.FrontRight))
//	_ = buf.Trim(delay, padding)
//	n, _ := buf.CopyInterleaved(out)
//
// AsIntBuffer and AsFloat32Buffer convert a Buffer to the go-audio types used
// by encoders such as the WAV writer.
//
// # Sources
//
// Source is the pull side: interleaved float32 samples read in chunks until
// io.EOF. mediakit.PacketSource adapts a demuxed track to it, and the stages
// in this package wrap one Source in another:
//
//	mono := audio.NewMonoMixer(audio.NewResampler(src, 16000))
//	buf := make([]float32, 4096)
//	for {
//	    n, err := mono.ReadSamples(buf)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    process(buf[:n])
//	}
//
// Resampler interpolates with a Catmull-Rom spline and runs a one-pole
// low-pass ahead of it when downsampling. MonoMixer averages all channels.
// ResampleToMono16 chains both and collects 16-bit PCM.
package audio
