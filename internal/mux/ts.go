package mux

import (
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/opendvr/tvcore/internal/bus"
)

// tsWriter serializes packets into an MPEG-TS container using
// mediacommon, which inserts PAT/PMT and extradata itself. MPEG-TS
// timestamps pass through unchanged (invariant 7).
type tsWriter struct {
	w      io.Writer
	muxer  *mpegts.Writer
	tracks map[int]*mpegts.Track
}

func newTSWriter(w io.Writer) *tsWriter {
	return &tsWriter{w: w, tracks: make(map[int]*mpegts.Track)}
}

func (t *tsWriter) writeHeader(streams []stream) error {
	var tracks []*mpegts.Track
	for _, s := range streams {
		track := &mpegts.Track{Codec: tsCodecFor(s)}
		t.tracks[s.id] = track
		tracks = append(tracks, track)
	}
	t.muxer = &mpegts.Writer{W: t.w, Tracks: tracks}
	return t.muxer.Initialize()
}

func tsCodecFor(s stream) mpegts.Codec {
	switch {
	case s.kind == bus.StreamVideo && s.codecTag == "h264":
		return &mpegts.CodecH264{}
	case s.kind == bus.StreamVideo:
		// mediacommon models MPEG-1/2 video with a single codec type; the
		// MPEG-TS stream type byte (not the Codec struct) is what tells a
		// demuxer it is actually MPEG-2.
		return &mpegts.CodecMPEG1Video{}
	case s.kind == bus.StreamAudio && (s.codecTag == "ac3" || s.codecTag == "ac-3"):
		return &mpegts.CodecAC3{SampleRate: s.sampleRate, ChannelCount: s.channels}
	case s.kind == bus.StreamAudio && (s.codecTag == "eac3" || s.codecTag == "ec-3"):
		return &mpegts.CodecEAC3{}
	case s.kind == bus.StreamAudio && s.codecTag == "aac":
		return &mpegts.CodecMPEG4Audio{Config: mpeg4audio.AudioSpecificConfig{
			Type:         mpeg4audio.ObjectTypeAACLC,
			SampleRate:   orDefault(s.sampleRate, 48000),
			ChannelCount: orDefault(s.channels, 2),
		}}
	default:
		return &mpegts.CodecMPEG1Audio{}
	}
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func (t *tsWriter) writePacket(s *stream, pkt *bus.Packet, keyframe bool) error {
	track, ok := t.tracks[s.id]
	if !ok {
		return nil
	}
	data := pkt.Payload.Bytes()
	switch c := track.Codec.(type) {
	case *mpegts.CodecH264:
		return t.muxer.WriteH264(track, pkt.PTS, pkt.DTS, [][]byte{data})
	case *mpegts.CodecMPEG1Video:
		return t.muxer.WriteMPEG1Video(track, pkt.PTS, pkt.DTS, [][]byte{data})
	case *mpegts.CodecAC3:
		return t.muxer.WriteAC3(track, pkt.PTS, data)
	case *mpegts.CodecEAC3:
		return t.muxer.WriteEAC3(track, pkt.PTS, data)
	case *mpegts.CodecMPEG4Audio:
		return t.muxer.WriteMPEG4Audio(track, pkt.PTS, [][]byte{data})
	case *mpegts.CodecMPEG1Audio:
		return t.muxer.WriteMPEG1Audio(track, pkt.PTS, [][]byte{data})
	default:
		return fmt.Errorf("unsupported ts codec %T", c)
	}
}

func (t *tsWriter) writeTrailer() error {
	return nil // mediacommon has no explicit trailer for MPEG-TS
}
