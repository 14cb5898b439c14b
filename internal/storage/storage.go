// Package storage persists completed backtest summaries to a JSON archive.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/eddiefleurent/optionsim/internal/results"
)

// JSONArchive stores run summaries in a single JSON file. Writes go to a
// temp file followed by an atomic rename, so a crash mid-save never leaves
// a torn archive.
type JSONArchive struct {
	mu       sync.RWMutex
	filepath string
	data     *archiveData
}

type archiveData struct {
	// Runs is keyed by run ID; Order preserves insertion order.
	Runs        map[string]*archivedRun `json:"runs"`
	Order       []string                `json:"order"`
	LastUpdated time.Time               `json:"last_updated"`
}

type archivedRun struct {
	Summary     *results.Summary `json:"summary"`
	CompletedAt time.Time        `json:"completed_at"`
}

// NewJSONArchive opens or creates the archive at the given path.
func NewJSONArchive(filepath string) (*JSONArchive, error) {
	a := &JSONArchive{
		filepath: filepath,
		data: &archiveData{
			Runs: make(map[string]*archivedRun),
		},
	}

	// Load existing data if file exists
	if _, err := os.Stat(filepath); err == nil {
		if err := a.Load(); err != nil {
			return nil, fmt.Errorf("loading archive: %w", err)
		}
	}

	return a, nil
}

// Load replaces in-memory state with the file's contents.
func (a *JSONArchive) Load() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(a.filepath)
	if err != nil {
		return err
	}

	loaded := &archiveData{}
	if err := json.Unmarshal(data, loaded); err != nil {
		return err
	}
	if loaded.Runs == nil {
		loaded.Runs = make(map[string]*archivedRun)
	}
	a.data = loaded
	return nil
}

// Save writes the archive to disk atomically.
func (a *JSONArchive) Save() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saveLocked()
}

func (a *JSONArchive) saveLocked() error {
	a.data.LastUpdated = time.Now()

	data, err := json.MarshalIndent(a.data, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first
	tmpFile := a.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpFile, a.filepath)
}

// SaveSummary archives a completed run and persists immediately. Saving the
// same run ID twice overwrites the earlier entry without duplicating it in
// the listing.
func (a *JSONArchive) SaveSummary(s *results.Summary) error {
	if s == nil || s.RunID == "" {
		return fmt.Errorf("summary must have a run ID")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.data.Runs[s.RunID]; !exists {
		a.data.Order = append(a.data.Order, s.RunID)
	}
	a.data.Runs[s.RunID] = &archivedRun{Summary: s, CompletedAt: time.Now()}

	return a.saveLocked()
}

// GetSummary returns the archived summary for a run ID.
func (a *JSONArchive) GetSummary(runID string) (*results.Summary, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	run, ok := a.data.Runs[runID]
	if !ok {
		return nil, false
	}
	return run.Summary, true
}

// HasRun reports whether a run ID is archived.
func (a *JSONArchive) HasRun(runID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.data.Runs[runID]
	return ok
}

// ListRuns returns compact entries, most recent first.
func (a *JSONArchive) ListRuns() []RunInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	infos := make([]RunInfo, 0, len(a.data.Order))
	for i := len(a.data.Order) - 1; i >= 0; i-- {
		run, ok := a.data.Runs[a.data.Order[i]]
		if !ok || run.Summary == nil {
			continue
		}
		s := run.Summary
		infos = append(infos, RunInfo{
			RunID:       s.RunID,
			Symbol:      s.Symbol,
			Strategy:    s.Strategy,
			Start:       s.Start,
			End:         s.End,
			NetPnL:      s.NetPnL,
			WinRate:     s.WinRate,
			CompletedAt: run.CompletedAt,
		})
	}
	return infos
}
