// Package pid implements PID control of a single variable.
package pid

// Default gains.
const (
	DefaultKp = 0.1
	DefaultKi = 0.000001
	DefaultKd = 0.0001
)

// DefaultTimestep is the default timestep in microseconds.
const DefaultTimestep = 1000

// ControlVariable is a variable driven towards Expected by PID control.
// The integral and derivative terms use the timestep in microseconds.
type ControlVariable struct {
	Expected float64
	Kp       float64
	Ki       float64
	Kd       float64
	// Timestep is the interval between steps in microseconds.
	Timestep float64

	actual     float64
	err        float64
	proportion float64
	integral   float64
	derivative float64
}

// New creates a ControlVariable with default gains.
func New(expected, timestep float64) *ControlVariable {
	if timestep <= 0 {
		timestep = DefaultTimestep
	}
	return &ControlVariable{
		Expected: expected,
		Kp:       DefaultKp,
		Ki:       DefaultKi,
		Kd:       DefaultKd,
		Timestep: timestep,
	}
}

// SetGains sets all gains.
func (v *ControlVariable) SetGains(kp, ki, kd float64) {
	v.Kp, v.Ki, v.Kd = kp, ki, kd
}

// Step updates the terms using the current value of the variable.
func (v *ControlVariable) Step(actual float64) {
	previous := v.err
	v.actual = actual
	v.err = v.Expected - actual
	v.proportion = v.err
	v.integral += v.err * v.Timestep
	v.derivative = (v.err - previous) / v.Timestep
}

// Correction returns the amount by which to adjust the input to correct
// the output.
func (v *ControlVariable) Correction() float64 {
	return v.Kp*v.proportion + v.Ki*v.integral + v.Kd*v.derivative
}

// Error returns the error of the last step.
func (v *ControlVariable) Error() float64 {
	return v.err
}

// Reset clears the accumulated state.
func (v *ControlVariable) Reset() {
	v.actual, v.err, v.proportion, v.integral, v.derivative = 0, 0, 0, 0, 0
}
