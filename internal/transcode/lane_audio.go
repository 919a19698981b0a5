package transcode

import "github.com/opendvr/tvcore/internal/bus"

// runAudioConsumer implements the audio lane algorithm (§4.D). It is
// the lane's dedicated consumer goroutine: it blocks on the producer
// queue, decodes into the lane's decode buffer, lazily opens the target
// encoder on first successful decode, and drains full frames out to the
// encoder, moving any residual down to the head of the buffer.
func (l *Lane) runAudioConsumer() {
	for {
		select {
		case pkt, ok := <-l.queue:
			if !ok {
				return
			}
			l.processAudioPacket(pkt)
		case <-l.done:
			l.drainQueue()
			return
		}
	}
}

func (l *Lane) drainQueue() {
	for {
		select {
		case pkt := <-l.queue:
			pkt.Payload.Release()
		default:
			return
		}
	}
}

func (l *Lane) processAudioPacket(pkt *bus.Packet) {
	defer pkt.Payload.Release()
	if l.srcIndex.Load() == 0 {
		return
	}

	decoded, err := l.audioDec.Decode(pkt.Payload.Bytes())
	if err != nil {
		l.logger.Warn("audio decode failed, dropping packet", "error", err)
		return // TransientDecodeError: drop and keep the lane alive
	}

	needed := l.decodeOff + len(decoded.Samples)
	if l.maxDecodeBuf > 0 && needed > l.maxDecodeBuf {
		l.logger.Warn("audio decode buffer overflow, dropping packet", "needed", needed, "max", l.maxDecodeBuf)
		return // BufferOverflow: treated as TransientDecodeError, lane stays alive
	}
	if len(l.decodeBuf) < needed {
		grown := make([]byte, needed)
		copy(grown, l.decodeBuf[:l.decodeOff])
		l.decodeBuf = grown
	}
	copy(l.decodeBuf[l.decodeOff:], decoded.Samples)
	l.decodeOff += len(decoded.Samples)

	if !l.audioOpened {
		if err := l.openAudioEncoder(decoded); err != nil {
			l.logger.Warn("audio encoder open failed", "error", err)
			l.targetTag = "none" // EncoderInitError: drop further packets of this kind
			return
		}
		l.audioOpened = true
	}
	if l.targetTag == "none" {
		return
	}

	channels := decoded.Channels
	if channels > 2 {
		channels = 2
	}
	frameBytes := bytesPerSample * l.audioEnc.FrameSize() * channels

	for l.decodeOff >= frameBytes {
		frame := l.decodeBuf[:frameBytes]
		unit, err := l.audioEnc.Encode(frame)
		if err != nil {
			l.logger.Warn("audio encode failed", "error", err)
			break
		}
		copy(l.decodeBuf, l.decodeBuf[frameBytes:l.decodeOff])
		l.decodeOff -= frameBytes

		if l.encodeHeaderSent {
			unit.Extradata = nil
		} else if unit.Extradata != nil {
			l.encodeHeaderSent = true
		}

		l.emit(unit, channels, pkt.SampleRateIdx, pkt.AspectNum, pkt.AspectDen, bus.FrameUnknown, pkt.Duration)
	}
}

func (l *Lane) openAudioEncoder(decoded *DecodedAudio) error {
	enc, err := l.factory.OpenAudioEncoder(l.targetTag)
	if err != nil {
		return err
	}
	channels := decoded.Channels
	if channels > 2 {
		channels = 2
	}
	bitRate := channels * 64000
	if err := enc.Open(channels, decoded.SampleRate, decoded.SampleFmt, bitRate); err != nil {
		return err
	}
	l.audioEnc = enc
	return nil
}
