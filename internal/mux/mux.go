// Package mux implements the container mux (§4.F): it maps a session's
// start descriptor into a container-specific set of streams and writes
// packets to a file descriptor, following the per-container support
// matrix and timestamp rules from the specification.
package mux

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/opendvr/tvcore/internal/bus"
	"github.com/opendvr/tvcore/internal/codec"
)

// Container identifies one of the three supported output containers.
type Container string

const (
	ContainerMPEGTS   Container = "mpegts"
	ContainerMatroska Container = "matroska"
	ContainerWebM     Container = "webm"
)

// stream is a container-level allocation for one start descriptor
// component.
type stream struct {
	id         int // == component.Index
	kind       bus.StreamKind
	codecTag   string
	extradata  []byte
	width      int
	height     int
	aspectNum  int
	aspectDen  int
	sampleRate int
	channels   int
	disabled   bool
}

// writer is implemented once per container family.
type writer interface {
	writeHeader(streams []stream) error
	writePacket(s *stream, pkt *bus.Packet, keyframe bool) error
	writeTrailer() error
}

// Mux is a bus.Sink that serializes packets into one container. Creation
// parameters match §4.F: a writable file descriptor, a start descriptor,
// and a container tag.
type Mux struct {
	fd        io.Writer
	container Container
	streams   map[int]*stream
	w         writer
	errors    atomic.Uint64
}

// ErrUnsupportedContainer is returned for an unknown container tag.
type ErrUnsupportedContainer struct{ Container string }

func (e ErrUnsupportedContainer) Error() string {
	return fmt.Sprintf("unsupported container: %s", e.Container)
}

// New constructs a Mux from a start descriptor and writes the header
// immediately (PAT/PMT for MPEG-TS, EBML header for Matroska/WebM).
func New(fd io.Writer, start *bus.Start, container Container) (*Mux, error) {
	m := &Mux{fd: fd, container: container, streams: make(map[int]*stream)}

	var streams []stream
	for _, c := range start.Components {
		if c.Disabled || !supports(container, c.CodecTag, c.Kind) {
			continue
		}
		s := stream{
			id:         c.Index,
			kind:       c.Kind,
			codecTag:   c.CodecTag,
			extradata:  c.Extradata,
			width:      c.Width,
			height:     c.Height,
			aspectNum:  c.AspectNum,
			aspectDen:  c.AspectDen,
			sampleRate: sampleRateFromIndex(c.SampleRateIdx),
			channels:   c.Channels,
		}
		streams = append(streams, s)
	}

	guarded := &shortWriteGuard{w: fd, onShort: func() { m.errors.Add(1) }}

	switch container {
	case ContainerMPEGTS:
		m.w = newTSWriter(guarded)
	case ContainerMatroska:
		m.w = newEBMLWriter(guarded, false)
	case ContainerWebM:
		m.w = newEBMLWriter(guarded, true)
	default:
		return nil, ErrUnsupportedContainer{Container: string(container)}
	}

	if err := m.w.writeHeader(streams); err != nil {
		m.errors.Add(1)
		return nil, fmt.Errorf("writing container header: %w", err)
	}
	for i := range streams {
		s := streams[i]
		m.streams[s.id] = &s
	}
	return m, nil
}

// supports implements the per-container codec tag support matrix.
func supports(container Container, tag string, kind bus.StreamKind) bool {
	switch container {
	case ContainerMatroska:
		return true // any audio/video/subtitle
	case ContainerWebM:
		switch kind {
		case bus.StreamVideo:
			return codec.VideoMatch(tag, "vp8")
		case bus.StreamAudio:
			return codec.AudioMatch(tag, "vorbis")
		default:
			return false
		}
	case ContainerMPEGTS:
		switch kind {
		case bus.StreamVideo:
			return codec.VideoMatch(tag, "mpeg2video") || codec.VideoMatch(tag, "h264")
		case bus.StreamAudio:
			return codec.AudioMatch(tag, "mpeg2audio") || codec.AudioMatch(tag, "ac3") ||
				codec.AudioMatch(tag, "eac3") || codec.AudioMatch(tag, "aac") || tag == "mp2"
		case bus.StreamSubtitle:
			return tag == "dvb-sub" || tag == "dvb-teletext"
		default:
			return false
		}
	default:
		return false
	}
}

var sriTable = [...]int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}

func sampleRateFromIndex(sri int) int {
	if sri >= 0 && sri < len(sriTable) {
		return sriTable[sri]
	}
	return 0
}

// Accept implements bus.Sink. Only packet and stop/exit messages are
// meaningful to a mux; everything else is ignored.
func (m *Mux) Accept(msg bus.Message) error {
	switch msg.Kind {
	case bus.KindPacket:
		return m.writePacket(msg.Packet)
	case bus.KindStop, bus.KindExit:
		return m.Close()
	default:
		return nil
	}
}

// writePacket locates the stream by component index and writes the
// packet; unsupported/disabled components produce no stream and their
// packets are silently dropped (spec invariant 6).
func (m *Mux) writePacket(pkt *bus.Packet) error {
	defer pkt.Payload.Release()
	s, ok := m.streams[pkt.ComponentIdx]
	if !ok {
		return nil
	}
	keyframe := pkt.FrameType == bus.FrameI
	if err := m.w.writePacket(s, pkt, keyframe); err != nil {
		m.errors.Add(1)
		return fmt.Errorf("writing packet for stream %d: %w", s.id, err)
	}
	return nil
}

// Close writes the container trailer.
func (m *Mux) Close() error {
	if err := m.w.writeTrailer(); err != nil {
		m.errors.Add(1)
		return err
	}
	return nil
}

// ErrorCount returns the monotonic write-error counter (§4.F / MuxWriteError).
func (m *Mux) ErrorCount() uint64 {
	return m.errors.Load()
}

// shortWriteGuard wraps a file descriptor and reports every short or
// failed write so the mux can increment its error counter (MuxWriteError),
// matching the "attempts to write the full buffer" contract.
type shortWriteGuard struct {
	w       io.Writer
	onShort func()
}

func (g *shortWriteGuard) Write(p []byte) (int, error) {
	n, err := g.w.Write(p)
	if err != nil || n != len(p) {
		g.onShort()
	}
	return n, err
}

// rescaleToMillis rescales a timestamp from a 90kHz-style source
// timebase to 1ms, used for Matroska/WebM output (invariant 7). The
// source timebase is assumed to already be expressed in the same units
// as clockHz; callers pass clockHz=90000 for the common MPEG clock.
func rescaleToMillis(ts int64, clockHz int64) int64 {
	if clockHz == 0 {
		return ts
	}
	return ts * 1000 / clockHz
}
