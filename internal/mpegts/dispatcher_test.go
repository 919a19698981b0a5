package mpegts

import (
	"testing"

	"github.com/asticode/go-astits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableDispatcher_DispatchPAT(t *testing.T) {
	d := &TableDispatcher{pmtCbs: make(map[uint16][]PMTCallback)}
	var got *astits.PATData
	d.OnPAT(func(pat *astits.PATData) { got = pat })

	pat := &astits.PATData{
		TransportStreamID: 1,
		Programs: []*astits.PATProgram{
			{ProgramNumber: 1, ProgramMapID: 4096},
		},
	}
	d.dispatch(&astits.Data{PAT: pat})

	require.NotNil(t, got)
	assert.Equal(t, uint16(1), got.TransportStreamID)
}

func TestTableDispatcher_DispatchPMTRoutedByPID(t *testing.T) {
	d := &TableDispatcher{pmtCbs: make(map[uint16][]PMTCallback)}
	var gotPID uint16
	var gotPMT *astits.PMTData
	d.OnPMT(4096, func(pmt *astits.PMTData, pid uint16) {
		gotPMT = pmt
		gotPID = pid
	})
	// A callback registered on a different PID must never fire.
	var otherFired bool
	d.OnPMT(5000, func(*astits.PMTData, uint16) { otherFired = true })

	pmt := &astits.PMTData{
		ProgramNumber: 1,
		PCRPID:        256,
		ElementaryStreams: []*astits.PMTElementaryStream{
			{ElementaryPID: 256, StreamType: astits.StreamTypeH264Video},
			{ElementaryPID: 257, StreamType: astits.StreamTypeAACAudio},
		},
	}
	d.dispatch(&astits.Data{PID: 4096, PMT: pmt})

	require.NotNil(t, gotPMT)
	assert.Equal(t, uint16(4096), gotPID)
	assert.False(t, otherFired)

	pcrPID, components := Components(gotPMT)
	assert.Equal(t, uint16(256), pcrPID)
	require.Len(t, components, 2)
	assert.Equal(t, uint16(256), components[0].PID)
	assert.Equal(t, uint16(257), components[1].PID)
}

func TestProgramMapPID(t *testing.T) {
	pat := &astits.PATData{
		Programs: []*astits.PATProgram{
			{ProgramNumber: 1, ProgramMapID: 4096},
			{ProgramNumber: 2, ProgramMapID: 4097},
		},
	}
	pid, ok := ProgramMapPID(pat, 2)
	require.True(t, ok)
	assert.Equal(t, uint16(4097), pid)

	_, ok = ProgramMapPID(pat, 99)
	assert.False(t, ok)
}
