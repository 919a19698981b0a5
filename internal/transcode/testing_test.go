package transcode

import (
	"fmt"

	"github.com/opendvr/tvcore/internal/bus"
)

// stubFactory is a CodecFactory that never touches a real codec library:
// it decodes by treating the payload as already-PCM/already-raw, and
// encodes by passing bytes through with a fixed frame size. It exists
// purely to exercise the lane orchestration logic under test.
type stubFactory struct {
	frameSize int
}

func (f *stubFactory) OpenAudioDecoder(tag string) (AudioDecoder, error) {
	return &stubAudioDecoder{}, nil
}

func (f *stubFactory) OpenAudioEncoder(tag string) (AudioEncoder, error) {
	if tag == "fail" {
		return nil, fmt.Errorf("no such encoder: %s", tag)
	}
	fs := f.frameSize
	if fs == 0 {
		fs = 8
	}
	return &stubAudioEncoder{frameSize: fs}, nil
}

func (f *stubFactory) OpenVideoDecoder(tag string) (VideoDecoder, error) {
	return &stubVideoDecoder{}, nil
}

func (f *stubFactory) OpenVideoEncoder(tag string) (VideoEncoder, error) {
	if tag == "fail" {
		return nil, fmt.Errorf("no such encoder: %s", tag)
	}
	return &stubVideoEncoder{}, nil
}

func (f *stubFactory) OpenScaler() Scaler { return &stubScaler{} }

type stubAudioDecoder struct{}

func (d *stubAudioDecoder) Decode(payload []byte) (*DecodedAudio, error) {
	return &DecodedAudio{Samples: payload, Channels: 2, SampleRate: 48000, SampleFmt: "s16"}, nil
}

type stubAudioEncoder struct {
	frameSize    int
	extradataSent bool
}

func (e *stubAudioEncoder) Open(channels, sampleRate int, sampleFmt string, bitRate int) error {
	return nil
}

func (e *stubAudioEncoder) FrameSize() int { return e.frameSize }

func (e *stubAudioEncoder) Encode(pcm []byte) (*EncodedUnit, error) {
	unit := &EncodedUnit{Data: append([]byte(nil), pcm...)}
	if !e.extradataSent {
		unit.Extradata = []byte{0xAA}
		e.extradataSent = true
	}
	return unit, nil
}

type stubVideoDecoder struct{}

func (d *stubVideoDecoder) Decode(payload []byte) (*DecodedVideo, bool, error) {
	if len(payload) == 0 {
		return nil, false, nil
	}
	return &DecodedVideo{Data: payload, Width: 1280, Height: 720, PTS: 0}, true, nil
}

type stubVideoEncoder struct {
	quality       float64
	extradataSent bool
}

func (e *stubVideoEncoder) Open(width, height int, quality float64) error {
	e.quality = quality
	return nil
}

func (e *stubVideoEncoder) SetQuality(q float64) { e.quality = q }

func (e *stubVideoEncoder) Encode(pic *DecodedVideo) (*EncodedUnit, error) {
	unit := &EncodedUnit{Data: append([]byte(nil), pic.Data...), PTS: pic.PTS, FrameType: int(bus.FrameI)}
	if !e.extradataSent {
		unit.Extradata = []byte{0xBB}
		e.extradataSent = true
	}
	return unit, nil
}

type stubScaler struct{}

func (s *stubScaler) Scale(pic *DecodedVideo, outW, outH int) (*DecodedVideo, error) {
	out := *pic
	out.Width, out.Height = outW, outH
	return &out, nil
}

// recordingSink collects every message Accept is called with, for
// assertions in tests.
type recordingSink struct {
	messages []bus.Message
}

func (s *recordingSink) Accept(msg bus.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}
