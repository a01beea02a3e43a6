// Package stats keeps running latency statistics for backends.
package stats

import (
	"math"
	"sync"
	"time"
)

// Latency is a running mean and variance of observed call durations, using
// Welford's algorithm. It is safe for concurrent use.
type Latency struct {
	mu   sync.Mutex
	n    int
	mean float64
	m2   float64
	last time.Duration
}

func (l *Latency) Push(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = d
	l.n++
	x := float64(d)
	delta := x - l.mean
	l.mean += delta / float64(l.n)
	l.m2 += delta * (x - l.mean)
}

// Summary is a point-in-time view of a Latency.
type Summary struct {
	Samples int
	Mean    time.Duration
	Stdev   time.Duration
	Last    time.Duration
	// Upper is the upper bound of the mean's confidence interval.
	Upper time.Duration
}

// Summarize reports the statistics with the mean's upper bound at the given
// confidence, a percentage between 0 and 100.
func (l *Latency) Summarize(confidence float64) Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Summary{Samples: l.n, Last: l.last}
	if l.n == 0 {
		return s
	}
	s.Mean = time.Duration(l.mean)
	if l.n > 1 {
		variance := l.m2 / float64(l.n-1)
		s.Stdev = time.Duration(math.Sqrt(variance))
		stderr := math.Sqrt(variance / float64(l.n))
		s.Upper = time.Duration(l.mean + ZVal(confidence)*stderr)
	} else {
		s.Upper = s.Mean
	}
	return s
}
