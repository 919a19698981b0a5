// Package codec resolves the handful of codec-tag aliases the mux's
// per-container support matrix needs to compare against. It does not
// model encoders, hardware acceleration or output containers: those
// belong to whatever produces a bus.Component's CodecTag in the first
// place (internal/transcode's CodecFactory), not to the mux that only
// needs to know whether two tags name the same codec.
package codec

import "strings"

// videoAliases maps recognized spellings to their canonical tag.
var videoAliases = map[string]string{
	"h264": "h264",
	"avc":  "h264",
	"h265": "h265",
	"hevc": "h265",

	"mpeg2video": "mpeg2video",
	"mpeg2":      "mpeg2video",

	"vp8": "vp8",
	"vp9": "vp9",
	"av1": "av1",
}

// audioAliases maps recognized spellings to their canonical tag.
var audioAliases = map[string]string{
	"aac": "aac",

	"ac3":  "ac3",
	"ac-3": "ac3",

	"eac3": "eac3",
	"ec-3": "eac3",
	"e-ac3": "eac3",

	"mpeg2audio": "mpeg2audio",
	"mp2a":       "mpeg2audio",
	"mp2":        "mpeg2audio",

	"vorbis": "vorbis",
}

// VideoMatch reports whether a and b name the same video codec, after
// resolving known aliases (e.g. "avc" and "h264"). Unrecognized tags
// only match themselves.
func VideoMatch(a, b string) bool {
	return resolve(videoAliases, a) == resolve(videoAliases, b)
}

// AudioMatch reports whether a and b name the same audio codec, after
// resolving known aliases (e.g. "ac-3" and "ac3"). Unrecognized tags
// only match themselves.
func AudioMatch(a, b string) bool {
	return resolve(audioAliases, a) == resolve(audioAliases, b)
}

func resolve(aliases map[string]string, tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if canon, ok := aliases[tag]; ok {
		return canon
	}
	return tag
}
