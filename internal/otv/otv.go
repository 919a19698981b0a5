// Package otv extracts OpenTV "now playing" song metadata carried in a
// private elementary stream on some radio channels (originally seen on
// Greek 16E transponders and Swedish cable radio). The payload is a
// fixed-offset event ID followed by a pipe-delimited descriptor string;
// no broadcast-table parsing beyond that is attempted (external
// collaborator scope, spec.md §1).
package otv

import "strconv"

// Field positions inside the pipe-delimited descriptor payload.
const (
	fieldSongID int = iota
	fieldStationName
	fieldSongLength
	fieldUnknown1
	fieldUnknown2
	fieldSongName
	fieldSongArtist
	fieldUnknown3
	fieldAlbumName
	fieldAlbumLabel
	fieldAlbumYear
	fieldChecksum
)

// NowPlaying is one parsed OpenTV song descriptor: everything needed to
// synthesize a short-lived "now playing" EPG entry for the station it
// names.
type NowPlaying struct {
	EventID  uint32
	Station  string
	Artist   string
	Song     string
	Album    string
	Label    string
	Year     int
	Duration int // seconds
}

// Title renders the "Artist - Song" string the original implementation
// uses as the synthesized event's title.
func (n NowPlaying) Title() string {
	if n.Artist == "" {
		return n.Song
	}
	return n.Artist + " - " + n.Song
}

// ExtractNowPlaying parses a batch of raw OpenTV elementary-stream
// payloads (one per call to the stream's input hook) into a map of
// station name to its most recently seen song descriptor. A payload
// that is too short, carries no station name, or whose declared
// descriptor length overruns the buffer is skipped.
func ExtractNowPlaying(payloads [][]byte) map[string]NowPlaying {
	out := make(map[string]NowPlaying)
	for _, p := range payloads {
		n, ok := parsePayload(p)
		if !ok {
			continue
		}
		out[n.Station] = n
	}
	return out
}

// parsePayload mirrors otv_input/otv_desc_parse: event ID is a
// big-endian u32 at byte offset 13, descriptor length is a single byte
// at offset 24, and the descriptor itself is a pipe-delimited field
// list starting at offset 25.
func parsePayload(data []byte) (NowPlaying, bool) {
	const headerLen = 25
	if len(data) < headerLen {
		return NowPlaying{}, false
	}

	eventID := uint32(data[13])<<24 | uint32(data[14])<<16 | uint32(data[15])<<8 | uint32(data[16])
	descLen := int(data[24])
	if len(data) < headerLen+descLen {
		return NowPlaying{}, false
	}

	fields := splitFields(data[headerLen : headerLen+descLen])
	if len(fields) <= fieldStationName {
		return NowPlaying{}, false
	}

	n := NowPlaying{EventID: eventID}
	for i, f := range fields {
		switch i {
		case fieldStationName:
			n.Station = f
		case fieldSongLength:
			n.Duration, _ = strconv.Atoi(f)
		case fieldSongName:
			n.Song = f
		case fieldSongArtist:
			n.Artist = f
		case fieldAlbumName:
			n.Album = f
		case fieldAlbumLabel:
			n.Label = f
		case fieldAlbumYear:
			n.Year, _ = strconv.Atoi(f)
		}
	}
	if n.Station == "" {
		return NowPlaying{}, false
	}
	return n, true
}

// splitFields is a byte-oriented split on '|', equivalent to the
// original's walk over NUL-terminated segments after rewriting each '|'
// to '\0'.
func splitFields(data []byte) []string {
	var fields []string
	start := 0
	for i, b := range data {
		if b == '|' {
			fields = append(fields, string(data[start:i]))
			start = i + 1
		}
	}
	fields = append(fields, string(data[start:]))
	return fields
}
