package storage

import (
	"fmt"
	"time"

	"github.com/eddiefleurent/optionsim/internal/results"
)

// MockStorage implements Interface for testing
type MockStorage struct {
	saveError     error
	loadError     error
	runs          map[string]*results.Summary
	order         []string
	saveCallCount int
	loadCallCount int
}

// NewMockStorage creates a new mock archive for testing
func NewMockStorage() *MockStorage {
	return &MockStorage{
		runs: make(map[string]*results.Summary),
	}
}

func (m *MockStorage) SaveSummary(s *results.Summary) error {
	if m.saveError != nil {
		return m.saveError
	}
	if s == nil || s.RunID == "" {
		return fmt.Errorf("summary must have a run ID")
	}
	if _, exists := m.runs[s.RunID]; !exists {
		m.order = append(m.order, s.RunID)
	}
	m.runs[s.RunID] = s
	m.saveCallCount++
	return nil
}

func (m *MockStorage) GetSummary(runID string) (*results.Summary, bool) {
	s, ok := m.runs[runID]
	return s, ok
}

func (m *MockStorage) HasRun(runID string) bool {
	_, ok := m.runs[runID]
	return ok
}

func (m *MockStorage) ListRuns() []RunInfo {
	infos := make([]RunInfo, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		s := m.runs[m.order[i]]
		infos = append(infos, RunInfo{
			RunID:       s.RunID,
			Symbol:      s.Symbol,
			Strategy:    s.Strategy,
			Start:       s.Start,
			End:         s.End,
			NetPnL:      s.NetPnL,
			WinRate:     s.WinRate,
			CompletedAt: time.Now(),
		})
	}
	return infos
}

// Data persistence methods (mocked)
func (m *MockStorage) Save() error {
	m.saveCallCount++
	return m.saveError
}

func (m *MockStorage) Load() error {
	m.loadCallCount++
	return m.loadError
}

// Mock control methods for testing
func (m *MockStorage) SetSaveError(err error) {
	m.saveError = err
}

func (m *MockStorage) SetLoadError(err error) {
	m.loadError = err
}

func (m *MockStorage) GetSaveCallCount() int {
	return m.saveCallCount
}

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)
