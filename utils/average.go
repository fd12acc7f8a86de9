package utils

// RollingWindow keeps the last N float samples, e.g. frame processing times.
type RollingWindow struct {
	data []float64
	pos  int
	full bool
}

// NewRollingWindow returns a window holding at most numSamples values.
func NewRollingWindow(numSamples int) *RollingWindow {
	if numSamples < 1 {
		numSamples = 1
	}
	return &RollingWindow{data: make([]float64, numSamples)}
}

// NumSamples is the capacity of the window.
func (rw *RollingWindow) NumSamples() int {
	return len(rw.data)
}

// Add records x, overwriting the oldest sample once the window is full.
func (rw *RollingWindow) Add(x float64) {
	rw.data[rw.pos] = x
	rw.pos++
	if rw.pos >= len(rw.data) {
		rw.pos = 0
		rw.full = true
	}
}

// Len is the number of samples currently held.
func (rw *RollingWindow) Len() int {
	if rw.full {
		return len(rw.data)
	}
	return rw.pos
}

// Samples returns a copy of the held samples, oldest first.
func (rw *RollingWindow) Samples() []float64 {
	if !rw.full {
		return append([]float64(nil), rw.data[:rw.pos]...)
	}
	out := make([]float64, 0, len(rw.data))
	out = append(out, rw.data[rw.pos:]...)
	return append(out, rw.data[:rw.pos]...)
}
