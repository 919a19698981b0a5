package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"h264", "h264", true},
		{"h264", "avc", true},
		{"hevc", "h265", true},
		{"mpeg2", "mpeg2video", true},
		{"h264", "hevc", false},
		{"vp8", "vp9", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, VideoMatch(c.a, c.b), "%s vs %s", c.a, c.b)
	}
}

func TestAudioMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"ac3", "ac-3", true},
		{"eac3", "ec-3", true},
		{"mp2", "mpeg2audio", true},
		{"aac", "ac3", false},
		{"vorbis", "opus", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, AudioMatch(c.a, c.b), "%s vs %s", c.a, c.b)
	}
}
