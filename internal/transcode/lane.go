package transcode

import (
	"log/slog"
	"sync/atomic"

	"github.com/opendvr/tvcore/internal/bufpool"
	"github.com/opendvr/tvcore/internal/bus"
)

const laneQueueDepth = 64

// bytesPerSample is fixed at 2 (16-bit PCM), matching the common decode
// path for every audio codec this package targets.
const bytesPerSample = 2

// laneKind distinguishes the audio and video pipelines inside Lane.
type laneKind int

const (
	laneAudio laneKind = iota
	laneVideo
)

// Lane is the per-stream transcoding state (§4.D): a decoder→scratch→
// encoder pipeline with a bounded producer queue and a dedicated
// consumer goroutine, following the external-encoder backpressure
// variant described in the design notes. srcIndex is zeroed on
// teardown; the consumer observes the zero value and exits, and no
// packet may be submitted or forwarded after that point.
type Lane struct {
	kind laneKind

	srcIndex atomic.Int32
	dstIndex int

	targetTag string
	pool      *bufpool.Pool
	logger    *slog.Logger
	sink      bus.Sink

	queue  chan *bus.Packet
	done   chan struct{}
	closed atomic.Bool

	// audio state
	audioDec      AudioDecoder
	audioEnc      AudioEncoder
	audioOpened   bool
	decodeBuf     []byte
	decodeOff     int
	maxDecodeBuf  int // 0 means unbounded
	encodeHeaderSent bool

	// video state
	videoDec    VideoDecoder
	videoEnc    VideoEncoder
	scaler      Scaler
	videoOpened bool
	outW, outH  int
	videoHeaderSent bool

	factory CodecFactory
}

func newLaneBase(srcIndex, dstIndex int, targetTag string, pool *bufpool.Pool, logger *slog.Logger, sink bus.Sink) *Lane {
	l := &Lane{
		dstIndex:  dstIndex,
		targetTag: targetTag,
		pool:      pool,
		logger:    logger,
		sink:      sink,
		queue:     make(chan *bus.Packet, laneQueueDepth),
		done:      make(chan struct{}),
	}
	l.srcIndex.Store(int32(srcIndex))
	return l
}

func newAudioLane(srcIndex, dstIndex int, targetTag string, dec AudioDecoder, factory CodecFactory, pool *bufpool.Pool, logger *slog.Logger, sink bus.Sink, maxDecodeBuf int) *Lane {
	l := newLaneBase(srcIndex, dstIndex, targetTag, pool, logger, sink)
	l.kind = laneAudio
	l.audioDec = dec
	l.factory = factory
	l.maxDecodeBuf = maxDecodeBuf
	go l.runAudioConsumer()
	return l
}

func newVideoLane(srcIndex, dstIndex int, targetTag string, dec VideoDecoder, factory CodecFactory, pool *bufpool.Pool, logger *slog.Logger, sink bus.Sink, outW, outH int, rc *RateController) *Lane {
	l := newLaneBase(srcIndex, dstIndex, targetTag, pool, logger, sink)
	l.kind = laneVideo
	l.videoDec = dec
	l.factory = factory
	l.outW, l.outH = outW, outH
	l.scaler = factory.OpenScaler()
	go l.runVideoConsumer()
	return l
}

// Submit enqueues a packet for the lane's consumer. It is a no-op once
// the lane has been closed (srcIndex cleared to 0).
func (l *Lane) Submit(pkt *bus.Packet) error {
	if l.srcIndex.Load() == 0 {
		pkt.Payload.Release()
		return nil
	}
	select {
	case l.queue <- pkt:
		return nil
	case <-l.done:
		pkt.Payload.Release()
		return nil
	}
}

// Close tears the lane down: clears the source index and signals the
// consumer, which exits the loop and never forwards another packet.
func (l *Lane) Close() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}
	l.srcIndex.Store(0)
	close(l.done)
}

// SetQuality satisfies qualityTarget for the rate controller (§4.E). No
// effect on an audio lane or before the encoder has opened.
func (l *Lane) SetQuality(q float64) {
	if l.videoEnc != nil {
		l.videoEnc.SetQuality(q)
	}
}

func (l *Lane) srcIdx() int { return int(l.srcIndex.Load()) }

// emit delivers an encoded unit downstream as a packet on the lane's
// destination component index, attaching extradata only the first time
// it appears.
func (l *Lane) emit(unit *EncodedUnit, channels, sri, aspectNum, aspectDen int, frameType bus.FrameType, duration int64) {
	if l.srcIndex.Load() == 0 {
		return // stop was processed; invariant 5
	}
	buf := l.pool.Get(len(unit.Data))
	copy(buf.Bytes(), unit.Data)

	var header []byte
	if unit.Extradata != nil {
		header = unit.Extradata
	}

	pkt := &bus.Packet{
		Payload:       buf,
		Header:        header,
		PTS:           unit.PTS,
		DTS:           unit.DTS,
		Duration:      duration,
		ComponentIdx:  l.dstIndex,
		FrameType:     frameType,
		Channels:      channels,
		SampleRateIdx: sri,
		AspectNum:     aspectNum,
		AspectDen:     aspectDen,
	}
	_ = l.sink.Accept(bus.Message{Kind: bus.KindPacket, Packet: pkt})
}
