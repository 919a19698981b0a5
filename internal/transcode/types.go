// Package transcode implements the per-subscriber transcoder session and
// its per-stream lanes (§4.C, §4.D): the core of the pipeline. Actual
// compressed-bitstream encode/decode is delegated to an external codec
// library through the Decoder/Encoder interfaces below; this package
// orchestrates buffering, lane lifecycle, backpressure and the rate
// feedback loop around that boundary, exactly as the specification
// scopes it.
package transcode

import "errors"

// ErrEncoderInit is returned by Encoder.Open when the target encoder
// cannot be initialized; the lane reacts per the EncoderInitError kind.
var ErrEncoderInit = errors.New("encoder init failed")

// DecodedAudio is PCM produced by an audio Decoder.
type DecodedAudio struct {
	Samples     []byte // interleaved PCM
	Channels    int
	SampleRate  int
	SampleFmt   string
}

// DecodedVideo is a raw picture produced by a video Decoder.
type DecodedVideo struct {
	Data      []byte // planar YUV or whatever the decoder natively produces
	Width     int
	Height    int
	PTS       int64
	Interlaced bool
}

// EncodedUnit is one compressed access unit produced by an Encoder.
type EncodedUnit struct {
	Data      []byte
	PTS       int64
	DTS       int64
	Extradata []byte // non-nil only the first time it becomes available
	FrameType int    // mirrors bus.FrameType
}

// AudioDecoder turns compressed audio packets into PCM. Implementations
// wrap an external codec library; this package never transforms sample
// data itself.
type AudioDecoder interface {
	Decode(payload []byte) (*DecodedAudio, error)
}

// AudioEncoder turns a fixed-size PCM frame into one encoded unit.
type AudioEncoder interface {
	// Open configures the encoder once the source format is known.
	Open(channels, sampleRate int, sampleFmt string, bitRate int) error
	// FrameSize is the number of samples per channel the encoder
	// requires per call to Encode.
	FrameSize() int
	Encode(pcm []byte) (*EncodedUnit, error)
}

// VideoDecoder turns compressed video packets into pictures.
type VideoDecoder interface {
	Decode(payload []byte) (*DecodedVideo, bool, error) // ok=false: no picture yet
}

// VideoEncoder turns a scaled/deinterlaced picture into one encoded unit.
type VideoEncoder interface {
	// Open configures the encoder with the lane's output geometry and
	// the per-codec profile table (§4.D) once the first picture arrives.
	Open(width, height int, quality float64) error
	Encode(pic *DecodedVideo) (*EncodedUnit, error)
	// SetQuality is called by the rate controller (§4.E); best-effort,
	// no synchronization guarantee beyond atomic visibility.
	SetQuality(q float64)
}

// Scaler deinterlaces and rescales a picture to the lane's output
// resolution. A cached instance is reused across frames.
type Scaler interface {
	Scale(pic *DecodedVideo, outW, outH int) (*DecodedVideo, error)
}

// CodecFactory opens decoders/encoders for a codec tag. A Session is
// constructed with one, so tests can supply stub codecs without linking
// any real codec library.
type CodecFactory interface {
	OpenAudioDecoder(tag string) (AudioDecoder, error)
	OpenAudioEncoder(tag string) (AudioEncoder, error)
	OpenVideoDecoder(tag string) (VideoDecoder, error)
	OpenVideoEncoder(tag string) (VideoEncoder, error)
	OpenScaler() Scaler
}
