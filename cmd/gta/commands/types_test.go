package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	gtatest "github.com/grandtrade/gta/internal/testutil"
)

func TestTypesCommand_Table(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).Config("test")
	out, err := runCommand(t, NewTypesCommand(cfg))
	require.NoError(t, err)

	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "ALIASES")
	assert.Contains(t, out, "alpaca,apca")
	assert.Contains(t, out, "mariadb,mysql")
	assert.Contains(t, out, "paper,sim,simulator")
	assert.Contains(t, out, "pg,postgres,postgresql")
	assert.Contains(t, out, "key_id,secret_key")
}

func TestTypesCommand_Structured(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).Config("test")

	out, err := runCommand(t, NewTypesCommand(cfg), "--format", "json")
	require.NoError(t, err)

	var infos []typeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 4)

	byName := make(map[string]typeInfo)
	for _, info := range infos {
		byName[info.Name] = info
	}
	assert.Equal(t, "broker", byName["alpaca"].Kind)
	assert.Equal(t, []string{"alpaca", "apca"}, byName["alpaca"].Aliases)
	assert.Empty(t, byName["paper"].Credentials)
	assert.Equal(t, []string{"username"}, byName["postgres"].Credentials)

	out, err = runCommand(t, NewTypesCommand(cfg), "-o", "yaml")
	require.NoError(t, err)
	var fromYAML []typeInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, infos, fromYAML)
}

func TestTypesCommand_BadFormat(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).Config("test")
	_, err := runCommand(t, NewTypesCommand(cfg), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
