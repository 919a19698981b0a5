package transcode

import "github.com/opendvr/tvcore/internal/bus"

// VideoProfile captures the per-codec encoder settings table from §4.D.
// Factories consult this when opening a VideoEncoder for a target tag.
type VideoProfile struct {
	Codec        string
	PixelFormat  string
	QScaleMode   bool
	BFrames      int
	QMin         int
	GlobalHeader bool

	// H264-specific tuning.
	MotionEst      string
	SubpelQuality  int
	MERange        int
	GOPSize        int
	KeyIntMin      int
	SceneCut       int
	Refs           int
	BPyramid       bool
	MaxBFrames     int
	AdaptiveB      bool
	CRF            int
	CQP            int
	BitrateFactor  int // bitrate = factor * W * H
	VBVLookahead   int
	BufferFactor   int // buffer = factor * W * H
	MaxRateFactor  int // max_rate = factor * buffer
	Profile        string
	LoopFilter     bool
}

// MPEG2VideoProfile matches the specification's MPEG2VIDEO row.
func MPEG2VideoProfile() VideoProfile {
	return VideoProfile{
		Codec:        "mpeg2video",
		PixelFormat:  "yuv420p",
		QScaleMode:   true,
		BFrames:      0,
		QMin:         1,
		GlobalHeader: true,
	}
}

// H264Profile matches the specification's H264 row.
func H264Profile(width, height int) VideoProfile {
	buffer := 2 * width * height
	return VideoProfile{
		Codec:         "h264",
		PixelFormat:   "yuv420p",
		GlobalHeader:  true,
		MotionEst:     "hex",
		SubpelQuality: 7,
		MERange:       16,
		GOPSize:       250,
		KeyIntMin:     25,
		SceneCut:      40,
		Refs:          6,
		BPyramid:      false,
		MaxBFrames:    16,
		AdaptiveB:     true,
		CRF:           10,
		CQP:           25,
		BitrateFactor: 2,
		VBVLookahead:  20,
		BufferFactor:  2,
		MaxRateFactor: 2,
		Profile:       "baseline",
		LoopFilter:    true,
	}
}

// ProfileFor looks up the encoder profile table entry for a target tag.
func ProfileFor(targetTag string, width, height int) VideoProfile {
	switch targetTag {
	case "h264", "avc":
		return H264Profile(width, height)
	default:
		return MPEG2VideoProfile()
	}
}

// runVideoConsumer implements the video lane algorithm (§4.D): decode
// one frame, lazily open the encoder using the per-codec profile table
// on the first produced picture, then deinterlace, scale and encode
// every subsequent frame.
func (l *Lane) runVideoConsumer() {
	for {
		select {
		case pkt, ok := <-l.queue:
			if !ok {
				return
			}
			l.processVideoPacket(pkt)
		case <-l.done:
			l.drainQueue()
			return
		}
	}
}

func (l *Lane) processVideoPacket(pkt *bus.Packet) {
	defer pkt.Payload.Release()
	if l.srcIndex.Load() == 0 {
		return
	}

	pic, ok, err := l.videoDec.Decode(pkt.Payload.Bytes())
	if err != nil {
		l.logger.Warn("video decode failed, dropping packet", "error", err)
		return
	}
	if !ok {
		return // no picture produced yet; wait for more input
	}

	if l.targetTag == "none" {
		return
	}

	if !l.videoOpened {
		profile := ProfileFor(l.targetTag, l.outW, l.outH)
		enc, err := l.factory.OpenVideoEncoder(l.targetTag)
		if err == nil {
			err = enc.Open(l.outW, l.outH, float64(profile.CQP))
		}
		if err != nil {
			l.logger.Warn("video encoder open failed", "error", err)
			l.targetTag = "none"
			return
		}
		l.videoEnc = enc
		l.videoOpened = true
	}

	scaled, err := l.scaler.Scale(pic, l.outW, l.outH)
	if err != nil {
		l.logger.Warn("scale failed, dropping frame", "error", err)
		return
	}

	unit, err := l.videoEnc.Encode(scaled)
	if err != nil {
		l.logger.Warn("video encode failed, dropping frame", "error", err)
		return
	}

	if unit.PTS == 0 {
		unit.PTS = pic.PTS
	}

	if l.videoHeaderSent {
		unit.Extradata = nil
	} else if unit.Extradata != nil {
		l.videoHeaderSent = true
	}

	l.emit(unit, 0, 0, pkt.AspectNum, pkt.AspectDen, frameTypeOf(unit.FrameType), pkt.Duration)
}

func frameTypeOf(ft int) bus.FrameType {
	switch ft {
	case int(bus.FrameI):
		return bus.FrameI
	case int(bus.FrameP):
		return bus.FrameP
	case int(bus.FrameB):
		return bus.FrameB
	default:
		return bus.FrameUnknown
	}
}
