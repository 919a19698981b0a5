package mpegts

import (
	"github.com/asticode/go-astits"

	"github.com/opendvr/tvcore/internal/bus"
)

// ComponentPID is one elementary stream entry discovered from a PMT,
// reduced to what the container mux needs to wire a passthrough lane:
// its PID, the raw MPEG-TS stream-type byte, and its normalized
// language tag if an ISO 639 language descriptor was present.
type ComponentPID struct {
	PID        uint16
	StreamType uint8
	Language   string
}

// Components extracts PCR PID and per-component PIDs from a parsed PMT,
// the information the mux needs to discover passthrough lane PIDs
// (spec.md §1's "MPEG-TS table wiring" collaborator).
func Components(pmt *astits.PMTData) (pcrPID uint16, components []ComponentPID) {
	if pmt == nil {
		return 0, nil
	}
	pcrPID = pmt.PCRPID
	components = make([]ComponentPID, 0, len(pmt.ElementaryStreams))
	for _, es := range pmt.ElementaryStreams {
		components = append(components, ComponentPID{
			PID:        es.ElementaryPID,
			StreamType: uint8(es.StreamType),
			Language:   componentLanguage(es.ElementaryStreamDescriptors),
		})
	}
	return pcrPID, components
}

// componentLanguage looks for an ISO 639 language descriptor among an
// elementary stream's descriptors and normalizes the language it names.
func componentLanguage(descriptors []*astits.Descriptor) string {
	for _, d := range descriptors {
		if d.ISO639LanguageAndAudioType == nil {
			continue
		}
		tag := bus.NormalizeLanguage(string(d.ISO639LanguageAndAudioType.Language[:]))
		if tag != "" {
			return tag
		}
	}
	return ""
}

// ProgramMapPID returns the PMT PID for programNumber out of a parsed
// PAT, or 0 with ok=false if the PAT doesn't carry that program.
func ProgramMapPID(pat *astits.PATData, programNumber uint16) (pid uint16, ok bool) {
	if pat == nil {
		return 0, false
	}
	for _, p := range pat.Programs {
		if p.ProgramNumber == programNumber {
			return p.ProgramMapID, true
		}
	}
	return 0, false
}
