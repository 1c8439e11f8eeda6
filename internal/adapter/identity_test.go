package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gtaerrors "github.com/grandtrade/gta/internal/errors"
)

func TestMatchesIDCriteria(t *testing.T) {
	t.Parallel()

	id := NewIdentity(KindDatabase, "mydb", "test", "database::mydb", "postgres", []string{"postgres", "postgresql", "pg"})

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"id only", Criteria{ID: "mydb"}, true},
		{"id and env", Criteria{ID: "mydb", Env: "test"}, true},
		{"fully defined", Criteria{ID: "mydb", Env: "test", Type: "postgres"}, true},
		{"alias type", Criteria{ID: "mydb", Type: "pg"}, true},
		{"other id", Criteria{ID: "reports"}, false},
		{"other env", Criteria{ID: "mydb", Env: "prod"}, false},
		{"other type", Criteria{ID: "mydb", Env: "test", Type: "mysql"}, false},
		{"type is case-sensitive", Criteria{ID: "mydb", Type: "Postgres"}, false},
		{"id is case-sensitive", Criteria{ID: "MyDB"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := id.MatchesIDCriteria(tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesIDCriteria_RequiresID(t *testing.T) {
	t.Parallel()

	id := NewIdentity(KindBroker, "alpaca-paper", "test", "broker::alpaca-paper", "alpaca", []string{"alpaca", "apca"})

	for _, c := range []Criteria{{}, {Env: "test"}, {Env: "test", Type: "alpaca"}} {
		ok, err := id.MatchesIDCriteria(c)
		assert.False(t, ok)
		assert.ErrorIs(t, err, gtaerrors.ErrInvalidCriteria)
	}
}

func TestIdentityAccessors(t *testing.T) {
	t.Parallel()

	aliases := []string{"alpaca", "apca"}
	id := NewIdentity(KindBroker, "alpaca-paper", "test", "broker::alpaca-paper", "alpaca", aliases)
	aliases[0] = "mutated"

	assert.Equal(t, KindBroker, id.Kind())
	assert.Equal(t, "alpaca-paper", id.ConfigID())
	assert.Equal(t, "test", id.Env())
	assert.Equal(t, "broker::alpaca-paper", id.SecretsID())
	assert.Equal(t, "alpaca", id.TypeName())
	assert.Equal(t, []string{"alpaca", "apca"}, id.TypeNames())

	names := id.TypeNames()
	names[1] = "changed"
	assert.Equal(t, []string{"alpaca", "apca"}, id.TypeNames())
}

func TestState(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unloaded", Unloaded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.False(t, Loading.Terminal())
	assert.True(t, Loaded.Terminal())
	assert.True(t, Failed.Terminal())
	assert.Equal(t, "State(9)", State(9).String())
}
