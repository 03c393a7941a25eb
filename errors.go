// SPDX-License-Identifier: EPL-2.0

package mediakit

import (
	"errors"

	"github.com/ik5/mediakit/media"
)

var (
	ErrNoTrack = errors.New("mediakit: no decodable track")

	ErrUnknownSignal = media.Unsupported("mediakit: decoder reports no sample rate or channels")
	ErrSignalChanged = media.Unsupported("mediakit: signal spec changed mid-stream")
)
