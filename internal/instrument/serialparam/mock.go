package serialparam

import (
	"bytes"
	"fmt"
	"sync"
)

// MockPort is an in-memory Port that answers every query with the last
// value written via SetReply, or with an injected error. It is the
// serialparam analogue of the teacher's types.MockSerialPort.
type MockPort struct {
	mu      sync.Mutex
	reply   []byte
	err     error
	written []string
	closed  bool
}

// NewMockPort creates a mock port that replies with initial until
// SetReply changes it.
func NewMockPort(initial float64) *MockPort {
	return &MockPort{reply: []byte(fmt.Sprintf("%g\n", initial))}
}

// SetReply changes what the next Read returns.
func (m *MockPort) SetReply(value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = []byte(fmt.Sprintf("%g\n", value))
}

// SetError makes every Read fail with err until it is cleared. Pass nil
// to clear it.
func (m *MockPort) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, fmt.Errorf("serialparam: mock port closed")
	}
	m.written = append(m.written, string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n := copy(p, m.reply)
	return n, nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Written returns every command sent to the port, in order.
func (m *MockPort) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.written))
	copy(out, m.written)
	return out
}
