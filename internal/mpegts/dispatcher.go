// Package mpegts wires PAT/PMT table extraction on top of go-astits's
// demuxer, grounded on the network-layer PID+table-ID dispatch a
// linuxdvb-style MPEG-TS input keeps internally. Only PAT/PMT are
// consumed here; the core treats broadcast-table parsing in general as
// an external collaborator (no EIT/SDT/NIT handling).
package mpegts

import (
	"context"
	"io"
	"sync"

	"github.com/asticode/go-astits"
)

// PATCallback is invoked whenever the demuxer surfaces a Program
// Association Table.
type PATCallback func(pat *astits.PATData)

// PMTCallback is invoked whenever the demuxer surfaces a Program Map
// Table on the PID it was registered against.
type PMTCallback func(pmt *astits.PMTData, pid uint16)

// TableDispatcher registers PAT/PMT callbacks and invokes them as raw
// MPEG-TS blocks (the bus's "raw MPEG-TS block" message tag) are pushed
// in. It owns a background goroutine pulling parsed tables out of an
// astits.Demuxer fed through an io.Pipe, so Push can be called
// synchronously from whichever goroutine owns the inbound subscription.
type TableDispatcher struct {
	pw    *io.PipeWriter
	demux *astits.Demuxer

	mu     sync.Mutex
	patCbs []PATCallback
	pmtCbs map[uint16][]PMTCallback

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTableDispatcher constructs a dispatcher and starts its background
// demux loop.
func NewTableDispatcher() *TableDispatcher {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	d := &TableDispatcher{
		pw:     pw,
		demux:  astits.New(ctx, pr),
		pmtCbs: make(map[uint16][]PMTCallback),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// OnPAT registers a callback invoked for every PAT the demuxer parses.
func (d *TableDispatcher) OnPAT(cb PATCallback) {
	d.mu.Lock()
	d.patCbs = append(d.patCbs, cb)
	d.mu.Unlock()
}

// OnPMT registers a callback invoked for every PMT parsed on pid.
func (d *TableDispatcher) OnPMT(pid uint16, cb PMTCallback) {
	d.mu.Lock()
	d.pmtCbs[pid] = append(d.pmtCbs[pid], cb)
	d.mu.Unlock()
}

// Push feeds one or more raw 188-byte MPEG-TS packets into the
// dispatcher. It blocks until the background loop has consumed them.
func (d *TableDispatcher) Push(block []byte) error {
	_, err := d.pw.Write(block)
	return err
}

// Close stops the background loop and releases the pipe.
func (d *TableDispatcher) Close() error {
	d.cancel()
	err := d.pw.Close()
	<-d.done
	return err
}

func (d *TableDispatcher) run() {
	defer close(d.done)
	for {
		data, err := d.demux.NextData()
		if err != nil {
			return
		}
		d.dispatch(data)
	}
}

// dispatch fans a parsed table out to its registered callbacks. Split
// out from run so the fan-out logic can be exercised directly with a
// hand-built *astits.Data, without needing a real TS byte stream.
func (d *TableDispatcher) dispatch(data *astits.Data) {
	if data == nil {
		return
	}
	if data.PAT != nil {
		d.mu.Lock()
		cbs := append([]PATCallback(nil), d.patCbs...)
		d.mu.Unlock()
		for _, cb := range cbs {
			cb(data.PAT)
		}
	}
	if data.PMT != nil {
		d.mu.Lock()
		cbs := append([]PMTCallback(nil), d.pmtCbs[data.PID]...)
		d.mu.Unlock()
		for _, cb := range cbs {
			cb(data.PMT, data.PID)
		}
	}
}
