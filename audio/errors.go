// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize   = errors.New("dst size must be multiple of channels")
	ErrInvalidChannels  = errors.New("channel mask must not be empty")
	ErrCapacityExceeded = errors.New("buffer capacity exceeded")
	ErrInvalidTrim      = errors.New("trim exceeds buffered frames")
)
