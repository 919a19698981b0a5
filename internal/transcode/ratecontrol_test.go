package transcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTarget struct {
	calls []float64
}

func (r *recordingTarget) SetQuality(q float64) { r.calls = append(r.calls, q) }

// S4 PID clamp.
func TestRateController_PIDClamp(t *testing.T) {
	rc := NewRateController(DefaultRateControlParams())
	target := &recordingTarget{}
	rc.lane = target

	base := time.Unix(1000, 0)
	clock := base
	rc.now = func() time.Time { return clock }

	rc.Update(100) // error=0
	clock = base.Add(500 * time.Millisecond)
	rc.Update(50) // ignored: < 1s since last call
	clock = base.Add(2 * time.Second)
	rc.Update(0)

	require.Len(t, target.calls, 2, "only the first and third calls should mutate quality")

	// error=100, dt=2, derivative=(100-0)/2=50, integral=0+100=100
	// q = 1 + 4*100 + 2*100 + 1*50 = 1 + 400 + 200 + 50 = 651
	assert.InDelta(t, 651, target.calls[1], 0.0001)
}

func TestRateController_NeverFasterThanMinInterval(t *testing.T) {
	rc := NewRateController(RateControlParams{Kp: 4, Ki: 2, Kd: 1, LambdaMax: 1000, MinInterval: time.Second})
	target := &recordingTarget{}
	rc.lane = target
	base := time.Unix(2000, 0)
	clock := base
	rc.now = func() time.Time { return clock }

	for i := 0; i < 5; i++ {
		rc.Update(10)
		clock = clock.Add(100 * time.Millisecond)
	}
	assert.LessOrEqual(t, len(target.calls), 1)
}
