// Package logsink provides row-oriented sinks for simulation telemetry.
// Sinks are injected per run, replacing any process-global file handle.
package logsink

import "sync"

// Sink receives the rows of one named log. Cells are pre-formatted; an
// empty string is the sentinel for a non-applicable cell.
type Sink interface {
	Write(row []string) error
	Close() error
}

// Factory builds the sink backing one named log.
type Factory func(name string) (Sink, error)

// Memory buffers rows in process. It is the default sink and the one used
// by tests.
type Memory struct {
	mu   sync.Mutex
	rows [][]string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Write(row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, append([]string(nil), row...))
	return nil
}

func (m *Memory) Close() error { return nil }

// Rows returns a snapshot of everything written, header row included.
func (m *Memory) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	copy(out, m.rows)
	return out
}

// Last returns the most recent row, or nil when empty.
func (m *Memory) Last() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return nil
	}
	return m.rows[len(m.rows)-1]
}

// MemoryFactory returns a factory of independent in-memory sinks and a
// lookup for retrieving them by log name afterwards.
func MemoryFactory() (Factory, func(name string) *Memory) {
	var mu sync.Mutex
	sinks := make(map[string]*Memory)
	factory := func(name string) (Sink, error) {
		mu.Lock()
		defer mu.Unlock()
		s := NewMemory()
		sinks[name] = s
		return s, nil
	}
	lookup := func(name string) *Memory {
		mu.Lock()
		defer mu.Unlock()
		return sinks[name]
	}
	return factory, lookup
}
