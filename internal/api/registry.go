package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"

	"main/internal/obs"
	"main/internal/sim"
)

// RunState names the lifecycle phase of a submitted simulation.
type RunState string

const (
	RunStateRunning  RunState = "running"
	RunStateFinished RunState = "finished"
	RunStateFailed   RunState = "failed"
)

type entry struct {
	mu        sync.Mutex
	sim       *sim.Simulation
	state     RunState
	completed int
	err       error
}

// Status is a point-in-time view of one submitted simulation.
type Status struct {
	ID               uuid.UUID `json:"id"`
	State            RunState  `json:"state"`
	CompletedPeriods int       `json:"completedPeriods"`
	RequestedPeriods int       `json:"requestedPeriods"`
	Truncated        bool      `json:"truncated"`
	Error            string    `json:"error,omitempty"`
}

// Registry owns the simulations submitted through the API and tracks
// their progress. Each simulation runs asynchronously with in-memory log
// sinks; results become readable once the run finishes. Runs are bound to
// the registry's lifetime, not to the HTTP request that submitted them.
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	metrics *obs.Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRegistry builds an empty registry. Metrics may be nil.
func NewRegistry(metrics *obs.Metrics) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		entries: make(map[uuid.UUID]*entry),
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close cancels every running simulation.
func (r *Registry) Close() {
	r.cancel()
}

// Start validates cfg, launches the simulation under the registry's
// lifetime, and returns its ID.
func (r *Registry) Start(cfg sim.Config, deadline time.Duration) (uuid.UUID, error) {
	s, err := sim.New(cfg, nil, sim.WithMetrics(r.metrics))
	if err != nil {
		return uuid.Nil, err
	}

	e := &entry{sim: s, state: RunStateRunning}
	r.mu.Lock()
	r.entries[s.ID] = e
	r.mu.Unlock()

	opt := sim.RunOptions{
		Update: func(s *sim.Simulation) {
			e.mu.Lock()
			e.completed = s.CompletedPeriods()
			e.mu.Unlock()
		},
	}
	if deadline > 0 {
		opt.Deadline = time.Now().Add(deadline)
	}

	done := s.RunAsync(r.ctx, opt)
	go func() {
		err := <-done
		e.mu.Lock()
		defer e.mu.Unlock()
		e.completed = s.CompletedPeriods()
		if err != nil {
			e.state = RunStateFailed
			e.err = err
			return
		}
		e.state = RunStateFinished
	}()
	return s.ID, nil
}

// Status reports the current state of a simulation.
func (r *Registry) Status(id uuid.UUID) (Status, error) {
	e, err := r.lookup(id)
	if err != nil {
		return Status{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		ID:               id,
		State:            e.state,
		CompletedPeriods: e.completed,
		RequestedPeriods: e.sim.RequestedPeriods(),
	}
	if e.state != RunStateRunning {
		st.Truncated = e.sim.Truncated()
	}
	if e.err != nil {
		st.Error = e.err.Error()
	}
	return st, nil
}

// Result returns the finished simulation. It fails while the run is
// still in progress so callers never observe partial state.
func (r *Registry) Result(id uuid.UUID) (*sim.Simulation, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == RunStateRunning {
		return nil, errors.New("simulation still running").With("id", id)
	}
	return e.sim, nil
}

func (r *Registry) lookup(id uuid.UUID) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, errors.New("simulation not found").With("id", id)
	}
	return e, nil
}
