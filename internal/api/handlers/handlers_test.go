package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/crmarena/dbagent/internal/agent"
	"github.com/crmarena/dbagent/internal/eval"
	"github.com/crmarena/dbagent/internal/querier"
	"github.com/crmarena/dbagent/internal/schema"
)

type fakeLLM struct {
	reply string
}

func (f *fakeLLM) Complete(_ context.Context, _, _ string) (string, error) {
	return f.reply, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crm.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE Account (Id TEXT PRIMARY KEY, Name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Account VALUES ('a1', 'John Doe')`)
	require.NoError(t, err)

	return path
}

// testHandlers wires a handler set against a seeded database and a canned
// generator reply.
func testHandlers(t *testing.T, llmReply string) *Handlers {
	t.Helper()
	path := seedDB(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	m, err := schema.Introspect(t.Context(), db)
	require.NoError(t, err)

	q, err := querier.New(querier.Config{Logger: testLogger(), DBPath: path})
	require.NoError(t, err)

	lazy := agent.NewLazy(func() (*agent.Agent, error) {
		return agent.New(agent.Config{
			Logger:  testLogger(),
			LLM:     &fakeLLM{reply: llmReply},
			Schema:  m,
			Querier: q,
			MaxRows: 50,
		})
	})

	return New(testLogger(), m, lazy, eval.NewStore())
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandlers_Query(t *testing.T) {
	t.Parallel()

	t.Run("answers a question", func(t *testing.T) {
		t.Parallel()

		h := testHandlers(t, `{"sql": "SELECT Name FROM Account", "reasoning": "list names"}`)
		rec := postJSON(t, h.Query, `{"question": "who are the accounts?"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			SQL       string           `json:"sql"`
			Columns   []string         `json:"columns"`
			Rows      []map[string]any `json:"rows"`
			Reasoning string           `json:"reasoning"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "SELECT Name FROM Account LIMIT 50", resp.SQL)
		require.Equal(t, []string{"Name"}, resp.Columns)
		require.Len(t, resp.Rows, 1)
		require.Equal(t, "John Doe", resp.Rows[0]["Name"])
		require.Equal(t, "list names", resp.Reasoning)
	})

	t.Run("rejects empty question", func(t *testing.T) {
		t.Parallel()

		h := testHandlers(t, `{"sql": "SELECT 1"}`)
		rec := postJSON(t, h.Query, `{"question": "   "}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid body", func(t *testing.T) {
		t.Parallel()

		h := testHandlers(t, `{"sql": "SELECT 1"}`)
		rec := postJSON(t, h.Query, `{not json`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("safety rejection is a bad request", func(t *testing.T) {
		t.Parallel()

		h := testHandlers(t, `{"sql": "DROP TABLE Account"}`)
		rec := postJSON(t, h.Query, `{"question": "drop it"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp struct {
			Category string `json:"category"`
			Error    string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "safety_rejection", resp.Category)
	})

	t.Run("non-JSON generator reply is a bad gateway", func(t *testing.T) {
		t.Parallel()

		h := testHandlers(t, "sorry, I can't help with that")
		rec := postJSON(t, h.Query, `{"question": "anything"}`)
		require.Equal(t, http.StatusBadGateway, rec.Code)

		var resp struct {
			Category string `json:"category"`
			Error    string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "upstream_generation_failure", resp.Category)
		require.Contains(t, resp.Error, "sorry")
	})

	t.Run("execution failure surfaces database message", func(t *testing.T) {
		t.Parallel()

		h := testHandlers(t, `{"sql": "SELECT Nope FROM Account"}`)
		rec := postJSON(t, h.Query, `{"question": "bad column"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp struct {
			Category string `json:"category"`
			Error    string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "execution_failure", resp.Category)
	})

	t.Run("missing credential is a configuration failure", func(t *testing.T) {
		t.Parallel()

		path := seedDB(t)
		db, err := sql.Open("sqlite3", path)
		require.NoError(t, err)
		m, err := schema.Introspect(t.Context(), db)
		db.Close()
		require.NoError(t, err)

		lazy := agent.NewLazy(func() (*agent.Agent, error) {
			return nil, agent.ErrMissingAPIKey
		})
		h := New(testLogger(), m, lazy, eval.NewStore())

		rec := postJSON(t, h.Query, `{"question": "anything"}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp struct {
			Category string `json:"category"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "configuration_failure", resp.Category)
	})
}

func TestHandlers_Schema(t *testing.T) {
	t.Parallel()

	// Schema must be served without ever touching the generator.
	path := seedDB(t)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	m, err := schema.Introspect(t.Context(), db)
	db.Close()
	require.NoError(t, err)

	lazy := agent.NewLazy(func() (*agent.Agent, error) {
		t.Fatal("schema endpoint must not build the agent")
		return nil, nil
	})
	h := New(testLogger(), m, lazy, eval.NewStore())

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	rec := httptest.NewRecorder()
	h.Schema(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []string{"Id", "Name"}, resp["Account"])
}

func TestHandlers_Eval(t *testing.T) {
	t.Parallel()

	h := testHandlers(t, `{"sql": "SELECT 1"}`)

	t.Run("rejects unknown backend", func(t *testing.T) {
		rec := postJSON(t, h.LogEvalRun, `{"backend": "CLI", "duration_sec": 1}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects negative duration", func(t *testing.T) {
		rec := postJSON(t, h.LogEvalRun, `{"backend": "API", "duration_sec": -1}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("logs runs and aggregates", func(t *testing.T) {
		rec := postJSON(t, h.LogEvalRun, `{"backend": "API", "duration_sec": 1.5, "param_ok": true, "misuse": false, "success": true}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/eval/metrics", nil)
		metricsRec := httptest.NewRecorder()
		h.EvalMetrics(metricsRec, req)
		require.Equal(t, http.StatusOK, metricsRec.Code)

		var resp map[string]struct {
			AvgTaskTimeSec float64 `json:"avg_task_time_sec"`
			Runs           int     `json:"runs"`
		}
		require.NoError(t, json.Unmarshal(metricsRec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp["API"].Runs)
		require.InDelta(t, 1.5, resp["API"].AvgTaskTimeSec, 1e-9)
	})
}
