// SPDX-License-Identifier: EPL-2.0

package stream

import "github.com/ik5/mediakit/checksum"

// MonitorStream passes every byte read from the inner reader to a checksum.
// Skipped bytes are read and checksummed too.
type MonitorStream struct {
	scalars

	inner   ByteReader
	monitor checksum.Monitor
	skip    []byte
}

func NewMonitorStream(inner ByteReader, monitor checksum.Monitor) *MonitorStream {
	m := &MonitorStream{inner: inner, monitor: monitor}
	m.scalars.src = m

	return m
}

func (m *MonitorStream) Monitor() checksum.Monitor { return m.monitor }

func (m *MonitorStream) Inner() ByteReader { return m.inner }

func (m *MonitorStream) Pos() uint64 { return m.inner.Pos() }

func (m *MonitorStream) Read(p []byte) (int, error) {
	n, err := m.inner.Read(p)
	m.monitor.Process(p[:n])

	return n, err
}

func (m *MonitorStream) ReadFull(p []byte) error {
	if err := m.inner.ReadFull(p); err != nil {
		return err
	}
	m.monitor.Process(p)

	return nil
}

func (m *MonitorStream) IgnoreBytes(n uint64) error {
	if m.skip == nil {
		m.skip = make([]byte, 4096)
	}
	for n > 0 {
		chunk := m.skip[:min(n, uint64(len(m.skip)))]
		if err := m.ReadFull(chunk); err != nil {
			return err
		}
		n -= uint64(len(chunk))
	}

	return nil
}

var _ ByteReader = (*MonitorStream)(nil)
