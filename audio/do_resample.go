// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// ResampleToMono16 resamples src to targetRate, downmixes it to mono and
// collects the whole stream as 16-bit PCM. bufferSize is the number of
// samples pulled per read. The returned rate is always targetRate.
//
// For finer control chain NewResampler and NewMonoMixer directly.
//
//	src, _ := mediakit.Decode(file.Format, mediakit.DefaultOptions())
//	pcm16, rate, err := audio.ResampleToMono16(src, 8000, 4096)
func ResampleToMono16(src Source, targetRate int, bufferSize int) ([]int16, int, error) {
	mono := NewMonoMixer(NewResampler(src, targetRate))

	pcm16 := make([]int16, 0, targetRate*2)
	buf := make([]float32, bufferSize)

	for {
		n, err := mono.ReadSamples(buf)
		for _, x := range buf[:n] {
			pcm16 = append(pcm16, FloatToS16(x))
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, targetRate, fmt.Errorf("resample to mono: %w", err)
		}
	}

	return pcm16, targetRate, nil
}
