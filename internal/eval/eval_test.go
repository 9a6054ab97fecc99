package eval

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEval_Metrics(t *testing.T) {
	t.Parallel()

	t.Run("empty store has no backends", func(t *testing.T) {
		s := NewStore()
		require.Empty(t, s.Metrics())
	})

	t.Run("aggregates per backend", func(t *testing.T) {
		s := NewStore()
		s.Log(Run{Backend: BackendAPI, DurationSec: 1.0, ParamOK: true, Misuse: false, Success: true})
		s.Log(Run{Backend: BackendAPI, DurationSec: 3.0, ParamOK: false, Misuse: true, Success: false})
		s.Log(Run{Backend: BackendMCP, DurationSec: 2.0, ParamOK: true, Misuse: false, Success: true})

		metrics := s.Metrics()
		require.Len(t, metrics, 2)

		api := metrics[BackendAPI]
		require.Equal(t, 2, api.Runs)
		require.InDelta(t, 2.0, api.AvgTaskTimeSec, 1e-9)
		require.InDelta(t, 50.0, api.ParamAccuracyPct, 1e-9)
		require.InDelta(t, 50.0, api.MisuseRatePct, 1e-9)
		require.InDelta(t, 50.0, api.SuccessRatePct, 1e-9)

		mcp := metrics[BackendMCP]
		require.Equal(t, 1, mcp.Runs)
		require.InDelta(t, 2.0, mcp.AvgTaskTimeSec, 1e-9)
		require.InDelta(t, 100.0, mcp.SuccessRatePct, 1e-9)
	})

	t.Run("runs returns insertion order", func(t *testing.T) {
		s := NewStore()
		s.Log(Run{Backend: BackendAPI, DurationSec: 1})
		s.Log(Run{Backend: BackendMCP, DurationSec: 2})

		runs := s.Runs()
		require.Len(t, runs, 2)
		require.Equal(t, BackendAPI, runs[0].Backend)
		require.Equal(t, BackendMCP, runs[1].Backend)
	})

	t.Run("concurrent logging is safe", func(t *testing.T) {
		s := NewStore()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Log(Run{Backend: BackendAPI, DurationSec: 1, Success: true})
			}()
		}
		wg.Wait()
		require.Equal(t, 50, s.Metrics()[BackendAPI].Runs)
	})
}
