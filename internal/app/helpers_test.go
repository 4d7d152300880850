package app

import (
	"sync"
	"time"

	"github.com/bft-labs/tcpmirror/internal/domain"
	"github.com/bft-labs/tcpmirror/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}
func (m mockLogger) With(fields ...ports.Field) ports.Logger {
	return m
}

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

// stateLog records worker transitions and lets tests wait for one.
type stateLog struct {
	mu          sync.Mutex
	transitions []WorkerState
	changed     chan struct{}
}

func newStateLog() *stateLog {
	return &stateLog{changed: make(chan struct{}, 64)}
}

func (s *stateLog) OnWorkerState(_ domain.Target, _, current WorkerState) {
	s.mu.Lock()
	s.transitions = append(s.transitions, current)
	s.mu.Unlock()
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// count returns how many times the worker entered state.
func (s *stateLog) count(state WorkerState) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range s.transitions {
		if st == state {
			n++
		}
	}
	return n
}

// waitFor blocks until state has been entered n times or the timeout expires.
func (s *stateLog) waitFor(state WorkerState, n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if s.count(state) >= n {
			return true
		}
		select {
		case <-s.changed:
		case <-deadline:
			return s.count(state) >= n
		}
	}
}

// mockRecorder counts metric observations per peer.
type mockRecorder struct {
	mu     sync.Mutex
	counts map[string]int
	sizes  map[string][]int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{counts: map[string]int{}, sizes: map[string][]int{}}
}

func (m *mockRecorder) IncChunks(peer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[peer]++
}

func (m *mockRecorder) ObserveSize(peer string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes[peer] = append(m.sizes[peer], n)
}

func (m *mockRecorder) totals() (chunks, observations, bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.counts {
		chunks += c
	}
	for _, s := range m.sizes {
		observations += len(s)
		for _, n := range s {
			bytes += n
		}
	}
	return chunks, observations, bytes
}
