package pid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := New(0, 0)
	require.Equal(t, DefaultKp, v.Kp)
	require.Equal(t, DefaultKi, v.Ki)
	require.Equal(t, DefaultKd, v.Kd)
	require.Equal(t, float64(DefaultTimestep), v.Timestep)
	require.Zero(t, v.Correction())
}

func TestStep(t *testing.T) {
	v := New(10, 1000)
	v.Step(4)
	require.Equal(t, 6.0, v.Error())
	// P = 6, I = 6000, D = 6/1000
	require.InDelta(t, 0.1*6+1e-6*6000+1e-4*0.006, v.Correction(), 1e-12)

	v.Step(8)
	// P = 2, I = 8000, D = -4/1000
	require.InDelta(t, 0.1*2+1e-6*8000-1e-4*0.004, v.Correction(), 1e-12)
}

func TestGainsAndReset(t *testing.T) {
	v := New(-600, 1000)
	v.SetGains(1, 0, 0)
	v.Step(-500)
	require.Equal(t, -100.0, v.Correction())
	v.Reset()
	require.Zero(t, v.Correction())
	require.Zero(t, v.Error())
}

func TestConverges(t *testing.T) {
	v := New(5, 1000)
	actual := 0.0
	for i := 0; i < 500; i++ {
		v.Step(actual)
		actual += v.Correction()
	}
	require.InDelta(t, 5, actual, 0.05)
}
