package otv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPayload(eventID uint32, fields []string) []byte {
	desc := []byte{}
	for i, f := range fields {
		if i > 0 {
			desc = append(desc, '|')
		}
		desc = append(desc, f...)
	}
	data := make([]byte, 25)
	data[13] = byte(eventID >> 24)
	data[14] = byte(eventID >> 16)
	data[15] = byte(eventID >> 8)
	data[16] = byte(eventID)
	data[24] = byte(len(desc))
	data = append(data, desc...)
	return data
}

func TestExtractNowPlaying(t *testing.T) {
	payload := buildPayload(42, []string{
		"songid", "Radio One", "210", "u1", "u2", "Waterloo", "ABBA", "u3", "Arrival", "Polar", "1976", "cksum",
	})

	out := ExtractNowPlaying([][]byte{payload})
	require.Contains(t, out, "Radio One")
	got := out["Radio One"]
	assert.Equal(t, uint32(42), got.EventID)
	assert.Equal(t, "ABBA", got.Artist)
	assert.Equal(t, "Waterloo", got.Song)
	assert.Equal(t, "Arrival", got.Album)
	assert.Equal(t, 1976, got.Year)
	assert.Equal(t, 210, got.Duration)
	assert.Equal(t, "ABBA - Waterloo", got.Title())
}

func TestExtractNowPlaying_SkipsShortPayload(t *testing.T) {
	out := ExtractNowPlaying([][]byte{make([]byte, 10)})
	assert.Empty(t, out)
}

func TestExtractNowPlaying_SkipsTruncatedDescriptor(t *testing.T) {
	data := make([]byte, 25)
	data[24] = 200 // claims 200 bytes of descriptor that aren't present
	out := ExtractNowPlaying([][]byte{data})
	assert.Empty(t, out)
}

func TestExtractNowPlaying_LatestWinsPerStation(t *testing.T) {
	first := buildPayload(1, []string{"", "Radio One", "100", "", "", "Old Song", "Old Artist"})
	second := buildPayload(2, []string{"", "Radio One", "200", "", "", "New Song", "New Artist"})

	out := ExtractNowPlaying([][]byte{first, second})
	require.Contains(t, out, "Radio One")
	assert.Equal(t, "New Song", out["Radio One"].Song)
}
