package querier

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// seedDB creates a throwaway database file so the per-call open in Query sees
// the same data.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crm.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE "Case" (Id TEXT PRIMARY KEY, Status TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "Case" VALUES ('c1', 'Open'), ('c2', 'Open'), ('c3', 'Closed')`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE Account (Id TEXT PRIMARY KEY, Name TEXT, Rating INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Account VALUES ('a1', 'John Doe', NULL)`)
	require.NoError(t, err)

	return path
}

func TestQuerier_New(t *testing.T) {
	t.Parallel()

	t.Run("requires logger", func(t *testing.T) {
		_, err := New(Config{DBPath: "x.db"})
		require.Error(t, err)
	})

	t.Run("requires db path", func(t *testing.T) {
		_, err := New(Config{Logger: testLogger()})
		require.Error(t, err)
	})
}

func TestQuerier_Query(t *testing.T) {
	t.Parallel()

	path := seedDB(t)
	q, err := New(Config{Logger: testLogger(), DBPath: path})
	require.NoError(t, err)

	t.Run("materializes columns and rows", func(t *testing.T) {
		resp, err := q.Query(t.Context(), `SELECT Status, COUNT(*) AS n FROM "Case" GROUP BY Status ORDER BY Status`)
		require.NoError(t, err)

		require.Equal(t, []string{"Status", "n"}, resp.Columns)
		require.Equal(t, 2, resp.Count)
		require.Equal(t, "Closed", resp.Rows[0]["Status"])
		require.EqualValues(t, 1, resp.Rows[0]["n"])
		require.Equal(t, "Open", resp.Rows[1]["Status"])
		require.EqualValues(t, 2, resp.Rows[1]["n"])
	})

	t.Run("null values survive projection", func(t *testing.T) {
		resp, err := q.Query(t.Context(), `SELECT Name, Rating FROM Account`)
		require.NoError(t, err)
		require.Equal(t, 1, resp.Count)
		require.Equal(t, "John Doe", resp.Rows[0]["Name"])
		require.Nil(t, resp.Rows[0]["Rating"])
	})

	t.Run("empty result keeps columns", func(t *testing.T) {
		resp, err := q.Query(t.Context(), `SELECT Id FROM Account WHERE Name = 'nobody'`)
		require.NoError(t, err)
		require.Equal(t, []string{"Id"}, resp.Columns)
		require.Equal(t, 0, resp.Count)
	})

	t.Run("database error is classified", func(t *testing.T) {
		_, err := q.Query(t.Context(), `SELECT * FROM MissingTable`)
		require.Error(t, err)

		var execErr *ExecError
		require.ErrorAs(t, err, &execErr)
		require.Contains(t, execErr.Error(), "MissingTable")
	})
}
