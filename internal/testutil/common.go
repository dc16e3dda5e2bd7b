package testutil

import (
	"fmt"
	"sync"

	"github.com/chrisreddington/gh-formbridge/internal/common"
)

// MockLogger provides a simple mock logger for testing. It is safe for
// concurrent use since the pipeline logs from parallel goroutines.
type MockLogger struct {
	mu          sync.Mutex
	LastMessage string
	DebugCalls  []string
	InfoCalls   []string
	ErrorCalls  []string
}

func (m *MockLogger) Debug(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastMessage = fmt.Sprintf(format, args...)
	m.DebugCalls = append(m.DebugCalls, m.LastMessage)
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastMessage = fmt.Sprintf(format, args...)
	m.InfoCalls = append(m.InfoCalls, m.LastMessage)
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastMessage = fmt.Sprintf(format, args...)
	m.ErrorCalls = append(m.ErrorCalls, m.LastMessage)
}

// Verify MockLogger implements common.Logger interface
var _ common.Logger = (*MockLogger)(nil)

// DefaultValues provides common default values used across different mock implementations
var DefaultValues = struct {
	HeadSHA     string
	CommitSHA   string
	PRNumber    int
	IssueNumber int
}{
	HeadSHA:     "0000000000000000000000000000000000000abc",
	CommitSHA:   "0000000000000000000000000000000000000def",
	PRNumber:    42,
	IssueNumber: 7,
}
