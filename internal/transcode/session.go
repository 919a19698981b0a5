package transcode

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/opendvr/tvcore/internal/bufpool"
	"github.com/opendvr/tvcore/internal/bus"
)

const maxPassthrough = 31

// Session composes audio, video and passthrough lanes for one
// subscription (§4.C). It embeds bus.Sink as its first field so a
// *Session and its inbound Sink are interchangeable by layout contract,
// matching the bus's sink-composition rule (§4.A).
type Session struct {
	bus.Sink // downstream: where transcoded/passthrough packets are emitted

	// ID correlates this session's log lines across its lanes; it has
	// no meaning outside this process.
	ID string

	targetVideo   string
	targetAudio   string
	targetSubtitle string
	maxHeight     int
	maxDecodeBuf  int

	factory CodecFactory
	pool    *bufpool.Pool
	logger  *slog.Logger

	audio *Lane
	video *Lane

	passthroughSrc [maxPassthrough]int
	passthroughDst [maxPassthrough]int
	passthroughN   int

	rc *RateController

	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds the creation parameters for a Session (§4.C).
type Config struct {
	Sink           bus.Sink
	MaxOutputHeight int
	// MaxDecodeBuffer bounds the audio lane's decode scratch buffer in
	// bytes. Zero means unbounded.
	MaxDecodeBuffer int
	TargetVideo    string // "unknown" requests passthrough
	TargetAudio    string
	TargetSubtitle string
	Factory        CodecFactory
	Pool           *bufpool.Pool
	Logger         *slog.Logger
	RateControl    RateControlParams
}

const unknownCodec = "unknown"

// NewSession constructs a Session ready to accept a Start message.
func NewSession(cfg Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Pool == nil {
		cfg.Pool = bufpool.New()
	}
	return &Session{
		Sink:           cfg.Sink,
		ID:             uuid.NewString(),
		targetVideo:    cfg.TargetVideo,
		targetAudio:    cfg.TargetAudio,
		targetSubtitle: cfg.TargetSubtitle,
		maxHeight:      cfg.MaxOutputHeight,
		maxDecodeBuf:   cfg.MaxDecodeBuffer,
		factory:        cfg.Factory,
		pool:           cfg.Pool,
		logger:         cfg.Logger,
		rc:             NewRateController(cfg.RateControl),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Accept implements bus.Sink (§4.A), routing each message kind per §4.C.
func (s *Session) Accept(msg bus.Message) error {
	switch msg.Kind {
	case bus.KindStart:
		return s.handleStart(msg.Start)
	case bus.KindPacket:
		return s.handlePacket(msg.Packet)
	case bus.KindStop:
		return s.handleStop()
	case bus.KindSpeed:
		if msg.Speed != nil {
			s.rc.Update(msg.Speed.Percent)
		}
		return nil
	default:
		// exit, service-status, signal-status, no-start, mpegts block,
		// skip, timeshift-status: forwarded unmodified.
		return s.Sink.Accept(msg)
	}
}

// handleStart partitions source components into passthroughs, the audio
// lane and the video lane, in that order, and emits the rebuilt
// descriptor downstream.
func (s *Session) handleStart(start *bus.Start) error {
	if start == nil {
		return nil
	}
	s.passthroughN = 0

	out := bus.Start{PCRPID: start.PCRPID, SourceInfo: start.SourceInfo}
	newIndex := 0

	var audioSrc, videoSrc *bus.Component
	for i := range start.Components {
		c := &start.Components[i]
		switch c.Kind {
		case bus.StreamAudio:
			if s.targetAudio != unknownCodec && audioSrc == nil {
				audioSrc = c
				continue
			}
		case bus.StreamVideo:
			if s.targetVideo != unknownCodec && videoSrc == nil {
				videoSrc = c
				continue
			}
		}
		if s.passthroughN >= maxPassthrough {
			continue
		}
		s.passthroughSrc[s.passthroughN] = c.Index
		s.passthroughDst[s.passthroughN] = newIndex
		s.passthroughN++
		comp := *c
		comp.Index = newIndex
		out.Components = append(out.Components, comp)
		newIndex++
	}

	if audioSrc != nil {
		lane, comp, err := s.openAudioLane(*audioSrc, newIndex)
		if err != nil {
			s.logger.Warn("audio lane open failed", "error", err)
		} else {
			s.audio = lane
			out.Components = append(out.Components, comp)
			newIndex++
		}
	}
	if videoSrc != nil {
		lane, comp, err := s.openVideoLane(*videoSrc, newIndex)
		if err != nil {
			s.logger.Warn("video lane open failed", "error", err)
		} else {
			s.video = lane
			out.Components = append(out.Components, comp)
			newIndex++
		}
	}

	return s.Sink.Accept(bus.Message{Kind: bus.KindStart, Start: &out})
}

func evenUp(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}

// outputGeometry computes the output height/width per §4.C: height is
// min(source, max) rounded up to even; width preserves source aspect,
// rounded up to even the same way.
func outputGeometry(srcW, srcH, maxH int) (w, h int) {
	h = srcH
	if maxH > 0 && h > maxH {
		h = maxH
	}
	h = evenUp(h)
	if srcH == 0 {
		return evenUp(srcW), h
	}
	w = srcW * h / srcH
	return evenUp(w), h
}

func (s *Session) openAudioLane(src bus.Component, dstIndex int) (*Lane, bus.Component, error) {
	dec, err := s.factory.OpenAudioDecoder(src.CodecTag)
	if err != nil {
		return nil, bus.Component{}, err
	}
	lane := newAudioLane(src.Index, dstIndex, s.targetAudio, dec, s.factory, s.pool, s.logger, s.Sink, s.maxDecodeBuf)
	comp := src
	comp.Index = dstIndex
	comp.CodecTag = s.targetAudio
	return lane, comp, nil
}

func (s *Session) openVideoLane(src bus.Component, dstIndex int) (*Lane, bus.Component, error) {
	dec, err := s.factory.OpenVideoDecoder(src.CodecTag)
	if err != nil {
		return nil, bus.Component{}, err
	}
	outW, outH := outputGeometry(src.Width, src.Height, s.maxHeight)
	lane := newVideoLane(src.Index, dstIndex, s.targetVideo, dec, s.factory, s.pool, s.logger, s.Sink, outW, outH, s.rc)
	s.rc.lane = lane
	comp := src
	comp.Index = dstIndex
	comp.CodecTag = s.targetVideo
	comp.Width = outW
	comp.Height = outH
	return lane, comp, nil
}

// handlePacket routes by component index per §4.C.
func (s *Session) handlePacket(pkt *bus.Packet) error {
	if pkt == nil {
		return nil
	}
	if s.video != nil && pkt.ComponentIdx == s.video.srcIdx() {
		return s.video.Submit(pkt)
	}
	if s.audio != nil && pkt.ComponentIdx == s.audio.srcIdx() {
		return s.audio.Submit(pkt)
	}
	for i := 0; i < s.passthroughN; i++ {
		if s.passthroughSrc[i] == pkt.ComponentIdx {
			clone := *pkt
			clone.ComponentIdx = s.passthroughDst[i]
			clone.Payload = pkt.Payload.Retain()
			return s.Sink.Accept(bus.Message{Kind: bus.KindPacket, Packet: &clone})
		}
	}
	// index matches neither a lane nor a passthrough entry: drop (invariant 1).
	pkt.Payload.Release()
	return nil
}

// handleStop flushes and closes both lanes; no output packet may be
// emitted from either lane afterwards (invariant 5).
func (s *Session) handleStop() error {
	if s.audio != nil {
		s.audio.Close()
	}
	if s.video != nil {
		s.video.Close()
	}
	s.cancel()
	return s.Sink.Accept(bus.Message{Kind: bus.KindStop})
}
