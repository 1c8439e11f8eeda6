package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gtaerrors "github.com/grandtrade/gta/internal/errors"
	gtatest "github.com/grandtrade/gta/internal/testutil"
	"github.com/grandtrade/gta/internal/validation"
)

func TestValidateCommand_Valid(t *testing.T) {
	t.Parallel()

	cfg := tradingConfDir(t).Config("test")

	out, err := runCommand(t, NewValidateCommand(cfg))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ brokers.conf [sim] (paper)")
	assert.Contains(t, out, "✓ databases.conf [mydb] (postgres)")
	assert.NotContains(t, out, "✗")
}

func TestValidateCommand_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithBroker("sim", "paper", "starting_cash", "lots").
		WithBroker("odd", "ib").
		WithDatabase("mydb", "postgres", "host", "localhost").
		Config("test")

	out, err := runCommand(t, NewValidateCommand(cfg))
	require.Error(t, err)

	var userErr gtaerrors.UserError
	assert.ErrorAs(t, err, &userErr)

	assert.Contains(t, out, "✗ brokers.conf [sim] (paper)")
	assert.Contains(t, out, "✗ brokers.conf [odd]")
	assert.Contains(t, out, "✗ databases.conf [mydb]")
	assert.Contains(t, out, "error:")
}

func TestValidateCommand_JSON(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithBroker("odd", "ib").
		Config("test")

	out, err := runCommand(t, NewValidateCommand(cfg), "-o", "json")
	require.Error(t, err)

	var results []validation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "odd", results[0].Section)
	assert.False(t, results[0].Valid)
	assert.Equal(t, "ib", results[0].Type)
}

func TestValidateCommand_ParseError(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithRaw("databases.conf", "host = localhost\n").
		Config("test")

	_, err := runCommand(t, NewValidateCommand(cfg))
	assert.ErrorIs(t, err, gtaerrors.ErrParse)
}
