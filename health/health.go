// Package health tracks which backends answered a probe. Request handling
// only ever reads an immutable Snapshot; the Monitor swaps in a new one
// after every round of probes.
package health

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/backend"
	"github.com/domino14/moveoracle/notation"
	"github.com/domino14/moveoracle/position"
	"github.com/domino14/moveoracle/stats"
)

var backendAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "moveoracle_backend_available",
	Help: "Whether the backend answered its last health probe (1) or not (0)",
}, []string{"backend"})

const (
	DefaultProbeTimeout = 10 * time.Second
	probeBudget         = time.Second
	latencyConfidence   = 95
)

type Status struct {
	Available    bool          `json:"available"`
	LastTestedAt time.Time     `json:"last_tested_at"`
	Latency      time.Duration `json:"latency_ns"`
	Error        string        `json:"error,omitempty"`
	// History covers every successful probe since the monitor started.
	History stats.Summary `json:"history"`
}

// Snapshot is never modified after construction.
type Snapshot struct {
	statuses map[string]Status
}

func NewSnapshot(statuses map[string]Status) *Snapshot {
	cp := make(map[string]Status, len(statuses))
	for k, v := range statuses {
		cp[k] = v
	}
	return &Snapshot{statuses: cp}
}

// Available is false for backends the snapshot knows nothing about.
func (s *Snapshot) Available(name string) bool {
	if s == nil {
		return false
	}
	return s.statuses[name].Available
}

func (s *Snapshot) Status(name string) (Status, bool) {
	if s == nil {
		return Status{}, false
	}
	st, ok := s.statuses[name]
	return st, ok
}

func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.statuses))
	for n := range s.statuses {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Source hands out the current snapshot.
type Source interface {
	Snapshot() *Snapshot
}

type fixed struct{ s *Snapshot }

func (f fixed) Snapshot() *Snapshot { return f.s }

// Fixed returns a Source that always reports the given availability.
func Fixed(available map[string]bool) Source {
	now := time.Now()
	st := make(map[string]Status, len(available))
	for name, ok := range available {
		st[name] = Status{Available: ok, LastTestedAt: now}
	}
	return fixed{NewSnapshot(st)}
}

// Monitor probes every adapter with the starting position.
type Monitor struct {
	adapters  []backend.Adapter
	timeout   time.Duration
	current   atomic.Pointer[Snapshot]
	latencies map[string]*stats.Latency
}

func NewMonitor(adapters []backend.Adapter, timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	m := &Monitor{adapters: adapters, timeout: timeout, latencies: map[string]*stats.Latency{}}
	for _, a := range adapters {
		m.latencies[a.Name()] = &stats.Latency{}
	}
	m.current.Store(NewSnapshot(nil))
	return m
}

func (m *Monitor) Snapshot() *Snapshot {
	return m.current.Load()
}

// Check probes all adapters concurrently, publishes the new snapshot and
// returns it.
func (m *Monitor) Check(ctx context.Context) *Snapshot {
	pos := position.MustParse(position.StartFEN)
	req := analysis.NewRequest(pos, 1, probeBudget)
	statuses := make([]Status, len(m.adapters))

	g := errgroup.Group{}
	for i, a := range m.adapters {
		g.Go(func() error {
			statuses[i] = m.probe(ctx, a, req)
			return nil
		})
	}
	g.Wait()

	next := make(map[string]Status, len(m.adapters))
	for i, a := range m.adapters {
		statuses[i].History = m.latencies[a.Name()].Summarize(latencyConfidence)
		next[a.Name()] = statuses[i]
		v := 0.0
		if statuses[i].Available {
			v = 1
		}
		backendAvailable.WithLabelValues(a.Name()).Set(v)
		log.Info().Str("backend", a.Name()).Bool("available", statuses[i].Available).
			Dur("latency", statuses[i].Latency).Str("err", statuses[i].Error).Msg("health-probe")
	}
	snap := NewSnapshot(next)
	m.current.Store(snap)
	return snap
}

func (m *Monitor) probe(ctx context.Context, a backend.Adapter, req analysis.Request) Status {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	start := time.Now()
	res, err := a.Analyze(ctx, req)
	st := Status{LastTestedAt: time.Now(), Latency: time.Since(start)}
	if err != nil {
		st.Error = err.Error()
		return st
	}
	mv, err := notation.Normalize(res.BestMove)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	if !req.Position.IsLegal(mv) {
		st.Error = "probe returned illegal move " + mv
		return st
	}
	st.Available = true
	m.latencies[a.Name()].Push(st.Latency)
	return st
}

// Run re-checks every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Check(ctx)
		}
	}
}
