// SPDX-License-Identifier: EPL-2.0

package audio

// MonoMixer downmixes a Source to a single channel by averaging. Mono sources
// pass through untouched.
type MonoMixer struct {
	src Source
	buf []float32
}

func NewMonoMixer(src Source) *MonoMixer {
	return &MonoMixer{src: src}
}

func (m *MonoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *MonoMixer) Channels() int   { return 1 }
func (m *MonoMixer) BufSize() int    { return m.src.BufSize() }

func (m *MonoMixer) Close() error {
	return m.src.Close()
}

// ReadSamples fills dst with up to len(dst) mono frames.
func (m *MonoMixer) ReadSamples(dst []float32) (int, error) {
	ch := m.src.Channels()
	if len(dst) == 0 {
		return 0, nil
	}
	if ch == 1 {
		return m.src.ReadSamples(dst)
	}

	need := len(dst) * ch
	if cap(m.buf) < need {
		m.buf = make([]float32, need)
	}
	n, err := m.src.ReadSamples(m.buf[:need])

	scale := 1 / float32(ch)
	frames := n / ch
	for f := range frames {
		var sum float32
		for _, v := range m.buf[f*ch : (f+1)*ch] {
			sum += v
		}
		dst[f] = sum * scale
	}

	return frames, err
}

var _ Source = (*MonoMixer)(nil)
