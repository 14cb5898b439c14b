package storage

import (
	"time"

	"github.com/eddiefleurent/optionsim/internal/results"
)

// RunInfo is the compact listing entry for an archived run.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	Symbol      string    `json:"symbol"`
	Strategy    string    `json:"strategy"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	NetPnL      float64   `json:"net_pnl"`
	WinRate     float64   `json:"win_rate"`
	CompletedAt time.Time `json:"completed_at"`
}

// Interface defines the contract for the run archive.
//
// Implementations must be safe for concurrent use - callers can assume all
// methods are goroutine-safe and can safely call these methods from multiple
// goroutines. The provided JSONArchive implementation uses sync.RWMutex to
// serialize access.
type Interface interface {
	// SaveSummary archives a completed run and persists immediately.
	SaveSummary(s *results.Summary) error
	// GetSummary returns the archived summary for a run ID.
	GetSummary(runID string) (*results.Summary, bool)
	// HasRun reports whether a run ID is archived.
	HasRun(runID string) bool
	// ListRuns returns compact entries, most recent first.
	ListRuns() []RunInfo

	// Data persistence
	Save() error
	Load() error
}

// NewStorage creates a new archive implementation (currently JSON-based).
// In the future, this can be extended to support different storage backends.
func NewStorage(filepath string) (Interface, error) {
	return NewJSONArchive(filepath)
}

// Ensure JSONArchive implements Interface
var _ Interface = (*JSONArchive)(nil)
