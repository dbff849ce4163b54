package stats

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

func TestSummary(t *testing.T) {
	a := New()
	for _, v := range []float64{10, 20, 30} {
		a.RecordTransmission()
		a.RecordSample(ms(v))
	}
	a.RecordTransmission()

	s := a.Summary()
	if s.Transmitted != 4 || s.Received != 3 || s.Lost != 1 {
		t.Errorf("counts = %d/%d/%d, want 4/3/1", s.Transmitted, s.Received, s.Lost)
	}
	if s.Loss != 25 {
		t.Errorf("Loss = %v, want 25", s.Loss)
	}
	if s.Min != 10 || s.Max != 30 || s.Avg != 20 {
		t.Errorf("min/avg/max = %v/%v/%v, want 10/20/30", s.Min, s.Avg, s.Max)
	}
	want := math.Sqrt(1400.0/3 - 400)
	if math.Abs(s.StdDev-want) > 1e-9 || math.Abs(s.StdDev-8.165) > 1e-3 {
		t.Errorf("StdDev = %v, want %v", s.StdDev, want)
	}
}

func TestSummaryEmpty(t *testing.T) {
	s := New().Summary()
	if s != (Summary{}) {
		t.Errorf("Summary() = %+v, want zero", s)
	}
}

func TestSummaryAllLost(t *testing.T) {
	a := New()
	for i := 0; i < 3; i++ {
		a.RecordTransmission()
	}
	s := a.Summary()
	if s.Loss != 100 || s.Received != 0 {
		t.Errorf("Summary() = %+v, want 100%% loss", s)
	}
	if s.Min != 0 || math.IsInf(s.Min, 0) || math.IsNaN(s.StdDev) {
		t.Errorf("RTT fields not zeroed: %+v", s)
	}
}

func TestSummaryIdenticalSamples(t *testing.T) {
	a := New()
	for i := 0; i < 1000; i++ {
		a.RecordTransmission()
		a.RecordSample(ms(0.1))
	}
	s := a.Summary()
	if math.IsNaN(s.StdDev) || s.StdDev < 0 || s.StdDev > 1e-6 {
		t.Errorf("StdDev = %v, want ~0", s.StdDev)
	}
}

func TestSummaryBounds(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for run := 0; run < 100; run++ {
		a := New()
		n := r.Intn(50) + 1
		for i := 0; i < n; i++ {
			a.RecordTransmission()
			if r.Intn(4) != 0 {
				a.RecordSample(time.Duration(r.Int63n(int64(500 * time.Millisecond))))
			}
		}

		s := a.Summary()
		if s.Received < 0 || s.Received > s.Transmitted {
			t.Fatalf("run %d: received %d of %d", run, s.Received, s.Transmitted)
		}
		if s.Loss < 0 || s.Loss > 100 {
			t.Fatalf("run %d: loss %v", run, s.Loss)
		}
		if s.Received > 0 && (s.Min > s.Avg+1e-9 || s.Avg > s.Max+1e-9) {
			t.Fatalf("run %d: min/avg/max = %v/%v/%v", run, s.Min, s.Avg, s.Max)
		}
		if math.IsNaN(s.StdDev) {
			t.Fatalf("run %d: StdDev is NaN", run)
		}
	}
}
