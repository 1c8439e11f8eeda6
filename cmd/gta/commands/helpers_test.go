package commands

import (
	"bytes"
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/database"
	gtatest "github.com/grandtrade/gta/internal/testutil"
)

// runCommand executes cmd with args and returns what it printed.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// withSQLMock returns an option whose databases connect to sqlmock. Each
// connection is primed by the next setup function.
func withSQLMock(t *testing.T, setups ...func(sqlmock.Sqlmock)) app.Option {
	t.Helper()

	var (
		mu   sync.Mutex
		next int
	)
	opener := func(driverName, dsn string) (*sql.DB, error) {
		mu.Lock()
		defer mu.Unlock()

		require.Less(t, next, len(setups), "unexpected connection %d to %s", next, driverName)
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		setups[next](mock)
		next++
		t.Cleanup(func() {
			assert.NoError(t, mock.ExpectationsWereMet())
		})
		return db, nil
	}
	return app.WithDatabases(database.NewRegistry(database.WithOpener(opener)))
}

// tradingConfDir has a paper broker for every env, an alpaca broker and a
// postgres database for test.
func tradingConfDir(t *testing.T) *gtatest.ConfDirBuilder {
	t.Helper()

	return gtatest.NewConfDir(t).
		WithBroker("sim", "paper", "starting_cash", "25000").
		WithBroker("alpaca-paper", "apca", "env", "test").
		WithDatabase("mydb", "postgres",
			"host", "localhost", "port", "5432", "database", "trading", "env", "test").
		WithSecrets("broker", "alpaca-paper", "key_id", "AKTEST", "secret_key", "alpaca-secret").
		WithSecrets("database", "mydb", "username", "trader", "password", "db-secret")
}
