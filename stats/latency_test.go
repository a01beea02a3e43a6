package stats

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestLatency(t *testing.T) {
	is := is.New(t)
	type tc struct {
		samples []int
		mean    time.Duration
		stdev   float64
	}
	cases := []tc{
		{[]int{10, 12, 23, 23, 16, 23, 21, 16}, 18 * time.Millisecond, 5.2372293656638},
		{[]int{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}, 47200 * time.Microsecond, 36.937785531891},
		{[]int{1}, time.Millisecond, 0},
		{[]int{}, 0, 0},
		{[]int{1, 1}, time.Millisecond, 0},
	}
	for _, c := range cases {
		l := &Latency{}
		for _, ms := range c.samples {
			l.Push(time.Duration(ms) * time.Millisecond)
		}
		s := l.Summarize(95)
		is.Equal(s.Samples, len(c.samples))
		is.True((s.Mean - c.mean).Abs() < time.Microsecond)
		is.True(math.Abs(float64(s.Stdev)/float64(time.Millisecond)-c.stdev) < 1e-3)
		is.True(s.Upper >= s.Mean)
	}
}

func TestZVal(t *testing.T) {
	is := is.New(t)
	is.True(math.Abs(ZVal(95)-1.959964) < 1e-5)
	is.True(math.Abs(ZVal(99)-2.575829) < 1e-5)
}

func TestLatencyConcurrent(t *testing.T) {
	is := is.New(t)
	l := &Latency{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Push(10 * time.Millisecond)
		}()
	}
	wg.Wait()
	s := l.Summarize(95)
	is.Equal(s.Samples, 50)
	is.Equal(s.Mean, 10*time.Millisecond)
	is.Equal(s.Stdev, time.Duration(0))
}
