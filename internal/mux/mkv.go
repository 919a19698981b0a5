package mux

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/opendvr/tvcore/internal/bus"
)

// ebmlWriter is a hand-rolled Matroska/WebM (EBML) writer. mediacommon
// has no Matroska muxer (its mpegts package only covers MPEG-TS), so
// this is the one component in the mux package built directly on the
// standard library rather than a third-party container library; see
// DESIGN.md for the justification.
//
// It writes one Cluster per packet rather than batching several
// packets into a shared cluster. This is a valid, if suboptimal,
// Matroska structure and keeps the writer's bookkeeping to a single
// pass with no lookahead buffering.
type ebmlWriter struct {
	w     io.Writer
	webm  bool
	clock int64 // shared timebase for all packets, in 1ms units
}

func newEBMLWriter(w io.Writer, webm bool) *ebmlWriter {
	return &ebmlWriter{w: w, webm: webm}
}

// EBML element IDs used by this writer (Matroska spec, subset).
const (
	idEBML            = 0x1A45DFA3
	idDocType         = 0x4282
	idDocTypeVersion  = 0x4287
	idSegment         = 0x18538067
	idTracks          = 0x1654AE6B
	idTrackEntry      = 0xAE
	idTrackNumber     = 0xD7
	idTrackUID        = 0x73C5
	idTrackType       = 0x83
	idCodecID         = 0x86
	idCodecPrivate    = 0x63A2
	idVideo           = 0xE0
	idPixelWidth      = 0xB0
	idPixelHeight     = 0xBA
	idAudio           = 0xE1
	idSamplingFreq    = 0xB5
	idChannels        = 0x9F
	idCluster         = 0x1F43B675
	idTimecode        = 0xE7
	idSimpleBlock     = 0xA3
)

func (e *ebmlWriter) writeHeader(streams []stream) error {
	docType := "matroska"
	if e.webm {
		docType = "webm"
	}
	header := ebmlElement(idEBML,
		ebmlElement(idDocType, []byte(docType)),
		ebmlElement(idDocTypeVersion, vintUint(2)),
	)
	if _, err := e.w.Write(header); err != nil {
		return err
	}

	var tracks []byte
	for _, s := range streams {
		tracks = append(tracks, trackEntry(s)...)
	}
	tracksElem := ebmlElement(idTracks, tracks)

	// Segment is written with an unknown (streamed) size so clusters can
	// be appended without knowing the total length up front.
	segmentHeader := append(vintID(idSegment), 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	if _, err := e.w.Write(segmentHeader); err != nil {
		return err
	}
	_, err := e.w.Write(tracksElem)
	return err
}

func trackEntry(s stream) []byte {
	trackType := byte(1) // video
	codecID := matroskaCodecID(s)
	var extra []byte
	extra = append(extra, ebmlElement(idTrackNumber, vintUint(uint64(s.id+1)))...)
	extra = append(extra, ebmlElement(idTrackUID, vintUint(uint64(s.id+1)))...)

	switch s.kind {
	case bus.StreamAudio:
		trackType = 2
		extra = append(extra, ebmlElement(idAudio,
			ebmlElement(idSamplingFreq, floatBytes(float64(s.sampleRate))),
			ebmlElement(idChannels, vintUint(uint64(s.channels))),
		)...)
	default:
		extra = append(extra, ebmlElement(idVideo,
			ebmlElement(idPixelWidth, vintUint(uint64(s.width))),
			ebmlElement(idPixelHeight, vintUint(uint64(s.height))),
		)...)
	}
	extra = append(extra, ebmlElement(idTrackType, []byte{trackType})...)
	extra = append(extra, ebmlElement(idCodecID, []byte(codecID))...)
	if len(s.extradata) > 0 {
		extra = append(extra, ebmlElement(idCodecPrivate, s.extradata)...)
	}
	return ebmlElement(idTrackEntry, extra)
}

func matroskaCodecID(s stream) string {
	switch {
	case s.kind == bus.StreamVideo && s.codecTag == "vp8":
		return "V_VP8"
	case s.kind == bus.StreamVideo && s.codecTag == "h264":
		return "V_MPEG4/ISO/AVC"
	case s.kind == bus.StreamVideo:
		return "V_MPEG2"
	case s.kind == bus.StreamAudio && s.codecTag == "vorbis":
		return "A_VORBIS"
	case s.kind == bus.StreamAudio && s.codecTag == "aac":
		return "A_AAC"
	case s.kind == bus.StreamAudio:
		return "A_MPEG/L2"
	default:
		return "S_TEXT/UTF8"
	}
}

// writePacket rescales the PTS to 1ms (invariant 7; a SimpleBlock carries
// no DTS or duration) and emits
// one Cluster + SimpleBlock per packet. The keyframe flag occupies bit 7
// of the SimpleBlock flags byte.
func (e *ebmlWriter) writePacket(s *stream, pkt *bus.Packet, keyframe bool) error {
	ts := rescaleToMillis(pkt.PTS, 90000)

	var flags byte
	if keyframe {
		flags |= 0x80
	}

	block := make([]byte, 0, len(pkt.Payload.Bytes())+8)
	block = append(block, vintUint(uint64(s.id+1))...)
	rel := int16(0) // block timecode is relative to the cluster timecode
	block = append(block, byte(rel>>8), byte(rel))
	block = append(block, flags)
	block = append(block, pkt.Payload.Bytes()...)

	cluster := ebmlElement(idCluster,
		ebmlElement(idTimecode, vintUint(uint64(ts))),
		ebmlElement(idSimpleBlock, block),
	)
	_, err := e.w.Write(cluster)
	return err
}

func (e *ebmlWriter) writeTrailer() error {
	return nil // unknown-size Segment needs no trailer
}

// --- EBML primitive encoding -------------------------------------------------

func vintID(id uint32) []byte {
	switch {
	case id <= 0xFF:
		return []byte{byte(id)}
	case id <= 0xFFFF:
		return []byte{byte(id >> 8), byte(id)}
	case id <= 0xFFFFFF:
		return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	default:
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	}
}

// vintUint encodes n as an EBML variable-size unsigned integer using the
// smallest length marker that fits.
func vintUint(n uint64) []byte {
	length := 1
	for n >= (uint64(1)<<(7*length))-1 && length < 8 {
		length++
	}
	buf := make([]byte, length)
	marker := uint64(1) << uint(8*length-length)
	v := n | marker
	for i := length - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

func floatBytes(f float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return buf
}

// size encodes a data length as an EBML vint with no "unknown size" bit set.
func vsize(n int) []byte {
	return vintUint(uint64(n))
}

// ebmlElement concatenates an ID, its encoded size, and its payload
// (itself possibly the concatenation of nested elements).
func ebmlElement(id uint32, payloads ...[]byte) []byte {
	var body []byte
	for _, p := range payloads {
		body = append(body, p...)
	}
	out := append([]byte{}, vintID(id)...)
	out = append(out, vsize(len(body))...)
	out = append(out, body...)
	return out
}
