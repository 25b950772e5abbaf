package sweep

import "time"

// Point is one tuple emitted on a Runner's data channel: a timestamp,
// the setpoint(s) that were commanded, and the value(s) read back from
// any listening/monitored parameters. Break is set instead of Setpoints/
// Values being populated when the trajectory crossed a discontinuity
// (e.g. a bidirectional turnaround) that Plot Sink consumers should
// render as a gap rather than a connected segment.
type Point struct {
	Timestamp time.Time
	Setpoints []float64
	Values    []float64
	Break     bool
}

// breakPoint constructs a break-marker Point at the given time.
func breakPoint(t time.Time) Point {
	return Point{Timestamp: t, Break: true}
}
