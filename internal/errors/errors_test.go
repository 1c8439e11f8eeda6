package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandtrade/gta/internal/errors"
)

func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("dial tcp: i/o timeout")
	tests := []struct {
		name string
		err  errors.UserError
		want string
	}{
		{
			"full",
			errors.UserError{Message: "Failed to read settings file", Details: "Connection timeout", Suggestion: "Check the path"},
			"Failed to read settings file\n  Details: Connection timeout\n  💡 Try: Check the path",
		},
		{"cause only", errors.UserError{Err: cause}, "dial tcp: i/o timeout"},
		{"message wins over cause", errors.UserError{Message: "Load failed", Err: cause}, "Load failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "conf_dir",
		Value:      "/missing",
		Message:    "directory not found",
		Suggestion: "Pass --conf-dir",
	}
	assert.Equal(t, "invalid config conf_dir=\"/missing\": directory not found\n  💡 Pass --conf-dir", err.Error())

	bare := errors.ConfigError{Message: "adapter descriptor needs a name"}
	assert.Equal(t, "invalid config: adapter descriptor needs a name", bare.Error())
}

func TestSectionError(t *testing.T) {
	t.Parallel()

	err := errors.SectionError{
		Kind:    "database",
		File:    "databases.conf",
		Section: "mydb",
		Key:     "port",
		Err:     errors.ErrMissingRequiredKey,
	}

	assert.Equal(t, `database section [mydb] in databases.conf (key "port"): missing required key`, err.Error())
	assert.ErrorIs(t, err, errors.ErrMissingRequiredKey)

	wrapped := fmt.Errorf("startup: %w", err)
	var se errors.SectionError
	require.True(t, stderrors.As(wrapped, &se))
	assert.Equal(t, "mydb", se.Section)
}

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain", fmt.Errorf("boom"), nil},
		{"direct", errors.ErrCast, errors.ErrCast},
		{"wrapped", fmt.Errorf("x: %w", errors.ErrCredentialsNotFound), errors.ErrCredentialsNotFound},
		{"section", errors.MissingKey("s", "k"), errors.ErrMissingRequiredKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Kind(tt.err))
		})
	}
}

func TestSimplify(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Simplify(nil))

	plain := fmt.Errorf("boom")
	assert.Equal(t, plain, errors.Simplify(plain))

	userErr := errors.UserError{Message: "already friendly"}
	assert.Equal(t, userErr, errors.Simplify(userErr))

	simplified := errors.Simplify(fmt.Errorf("load: %w", errors.ErrUnknownAdapterType))
	var ue errors.UserError
	require.True(t, stderrors.As(simplified, &ue))
	assert.Contains(t, ue.Suggestion, "gta types")
	assert.ErrorIs(t, simplified, errors.ErrUnknownAdapterType)
}
