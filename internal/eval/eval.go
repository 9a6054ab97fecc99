// Package eval keeps in-memory bookkeeping for manual side-by-side
// evaluation of the two transports. Runs live only for the process lifetime;
// nothing is persisted.
package eval

import "sync"

// Backend identifies which transport served a run.
type Backend string

const (
	BackendAPI Backend = "API"
	BackendMCP Backend = "MCP"
)

// Run is one logged evaluation: how long the call took and the manually
// judged correctness flags.
type Run struct {
	Backend     Backend `json:"backend"`
	DurationSec float64 `json:"duration_sec"`
	ParamOK     bool    `json:"param_ok"`
	Misuse      bool    `json:"misuse"`
	Success     bool    `json:"success"`
}

// Summary aggregates the runs of one backend.
type Summary struct {
	AvgTaskTimeSec   float64 `json:"avg_task_time_sec"`
	ParamAccuracyPct float64 `json:"param_accuracy_pct"`
	MisuseRatePct    float64 `json:"misuse_rate_pct"`
	SuccessRatePct   float64 `json:"success_rate_pct"`
	Runs             int     `json:"runs"`
}

// Store is a process-wide, mutex-guarded run log. The serving transport may
// dispatch concurrent calls, so appends and reads are synchronized.
type Store struct {
	mu   sync.Mutex
	runs []Run
}

func NewStore() *Store {
	return &Store{}
}

// Log appends a run.
func (s *Store) Log(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
}

// Runs returns a copy of all logged runs in insertion order.
func (s *Store) Runs() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, len(s.runs))
	copy(out, s.runs)
	return out
}

// Metrics aggregates runs per backend. Backends without runs are omitted.
func (s *Store) Metrics() map[Backend]Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	grouped := map[Backend][]Run{}
	for _, r := range s.runs {
		grouped[r.Backend] = append(grouped[r.Backend], r)
	}

	metrics := make(map[Backend]Summary, len(grouped))
	for backend, runs := range grouped {
		var totalTime float64
		var paramOK, misuse, success int
		for _, r := range runs {
			totalTime += r.DurationSec
			if r.ParamOK {
				paramOK++
			}
			if r.Misuse {
				misuse++
			}
			if r.Success {
				success++
			}
		}
		n := float64(len(runs))
		metrics[backend] = Summary{
			AvgTaskTimeSec:   totalTime / n,
			ParamAccuracyPct: 100 * float64(paramOK) / n,
			MisuseRatePct:    100 * float64(misuse) / n,
			SuccessRatePct:   100 * float64(success) / n,
			Runs:             len(runs),
		}
	}
	return metrics
}
