package transcode

import (
	"sync"
	"time"
)

// RateControlParams carries the PID gains and timing constraints (§4.E).
type RateControlParams struct {
	Kp          float64
	Ki          float64
	Kd          float64
	LambdaMax   float64
	MinInterval time.Duration
}

// DefaultRateControlParams matches the specification's constants.
func DefaultRateControlParams() RateControlParams {
	return RateControlParams{Kp: 4, Ki: 2, Kd: 1, LambdaMax: 1000, MinInterval: time.Second}
}

// qualityTarget is satisfied by a video Lane's encoder.
type qualityTarget interface {
	SetQuality(q float64)
}

// RateController is a PID regulator mapping observed client network
// speed to the video lane's target encoder quality (§4.E). Update must
// not be called more than once per wall-clock second; faster calls are
// ignored (invariant 4).
type RateController struct {
	params RateControlParams

	mu         sync.Mutex
	lastClock  time.Time
	lastError  float64
	integral   float64
	hasClock   bool

	lane qualityTarget // wired by the session once the video lane opens

	now func() time.Time // overridable for tests
}

// NewRateController constructs a controller with the given params. A
// zero MinInterval defaults to one second.
func NewRateController(p RateControlParams) *RateController {
	if p.MinInterval <= 0 {
		p.MinInterval = time.Second
	}
	if p.LambdaMax <= 0 {
		p.LambdaMax = 1000
	}
	return &RateController{params: p, now: time.Now}
}

// Update applies one observed speed sample, clamped to [0,100]. Calls
// spaced less than MinInterval apart are ignored.
func (r *RateController) Update(speedPercent int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.hasClock && now.Sub(r.lastClock) < r.params.MinInterval {
		return
	}

	errVal := 100 - float64(speedPercent)
	dt := 1.0
	if r.hasClock {
		d := now.Sub(r.lastClock).Seconds()
		if d > 1 {
			dt = d
		}
	}
	derivative := (errVal - r.lastError) / dt
	r.integral += errVal

	q := 1 + r.params.Kp*errVal + r.params.Ki*r.integral + r.params.Kd*derivative
	if q < 1 {
		q = 1
	}
	if q > r.params.LambdaMax {
		q = r.params.LambdaMax
	}

	r.lastError = errVal
	r.lastClock = now
	r.hasClock = true

	if r.lane != nil {
		r.lane.SetQuality(q)
	}
}
