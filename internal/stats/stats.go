// Package stats accumulates round-trip times and packet counts for a ping
// run without keeping individual samples.
package stats

import (
	"math"
	"time"
)

// Accumulator holds running totals. RTTs are kept in milliseconds.
type Accumulator struct {
	transmitted int
	received    int

	min        float64
	max        float64
	sum        float64
	sumSquares float64
}

// Summary is the final report computed from an Accumulator. RTT fields are
// in milliseconds and zero when nothing was received.
type Summary struct {
	Transmitted int
	Received    int
	Lost        int
	Loss        float64 // percent, 0 when nothing was transmitted
	Min         float64
	Avg         float64
	Max         float64
	StdDev      float64
}

// New returns an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{min: math.Inf(1)}
}

// RecordTransmission counts a request that left the host.
func (a *Accumulator) RecordTransmission() {
	a.transmitted++
}

// RecordSample counts a matched reply with the given round-trip time.
func (a *Accumulator) RecordSample(rtt time.Duration) {
	ms := float64(rtt) / float64(time.Millisecond)
	a.min = math.Min(a.min, ms)
	a.max = math.Max(a.max, ms)
	a.sum += ms
	a.sumSquares += ms * ms
	a.received++
}

// Summary computes mean, standard deviation and loss from the totals.
func (a *Accumulator) Summary() Summary {
	s := Summary{
		Transmitted: a.transmitted,
		Received:    a.received,
		Lost:        a.transmitted - a.received,
	}
	if a.transmitted > 0 {
		s.Loss = float64(s.Lost) / float64(a.transmitted) * 100
	}
	if a.received == 0 {
		return s
	}

	n := float64(a.received)
	s.Min = a.min
	s.Max = a.max
	s.Avg = a.sum / n
	// Rounding can push the variance of near-identical samples below zero.
	variance := a.sumSquares/n - s.Avg*s.Avg
	s.StdDev = math.Sqrt(math.Max(variance, 0))
	return s
}
