// SPDX-License-Identifier: EPL-2.0

package mediakit

import (
	"github.com/ik5/mediakit/audio"
)

// ResampleFileToMono16 decodes the default audio track of path and returns it
// as mono 16-bit PCM at targetRate.
//
// bufferSize is the number of samples pulled through the pipeline per read.
//
// Example:
//
//	pcm16, err := mediakit.ResampleFileToMono16("call.mp3", 8000, 4096, mediakit.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	// pcm16 now contains mono 16-bit PCM at 8kHz
func ResampleFileToMono16(path string, targetRate, bufferSize int, opts Options) ([]int16, error) {
	f, err := OpenFile(path, opts)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := Decode(f.Format, opts)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	pcm16, _, err := audio.ResampleToMono16(src, targetRate, bufferSize)
	if err != nil {
		return nil, err
	}

	return pcm16, nil
}
