package app_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/broker"
	"github.com/grandtrade/gta/internal/database"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/metrics"
	gtatest "github.com/grandtrade/gta/internal/testutil"
)

func mydbConfDir(t *testing.T) *gtatest.ConfDirBuilder {
	return gtatest.NewConfDir(t).
		WithDatabase("mydb", "postgres",
			"host", "localhost",
			"port", "5432",
			"database", "trading",
			"env", "test")
}

func TestGetAdapterFromConfig_PostgresNeedsCredentials(t *testing.T) {
	t.Parallel()

	ctx := app.New(mydbConfDir(t).Config("test"))
	defer ctx.Close()

	_, err := ctx.GetAdapterFromConfig(adapter.KindDatabase, "test", "postgres")
	require.Error(t, err)
	assert.ErrorIs(t, err, gtaerrors.ErrCredentialsNotFound)

	var se gtaerrors.SectionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "mydb", se.Section)
	assert.Equal(t, adapter.KindDatabase, se.Kind)

	assert.Equal(t, adapter.Failed, ctx.State(adapter.KindDatabase, "test", "mydb"))
}

func TestGetAdapterFromConfig_Postgres(t *testing.T) {
	t.Parallel()

	cfg := mydbConfDir(t).
		WithSecrets("database", "mydb", "username", "trader", "password", "s3cret").
		Config("test")
	ctx := app.New(cfg)
	defer ctx.Close()

	inst, err := ctx.GetAdapterFromConfig(adapter.KindDatabase, "test", "postgres")
	require.NoError(t, err)

	ok, err := inst.MatchesIDCriteria(adapter.Criteria{ID: "mydb", Env: "test", Type: "postgres"})
	require.NoError(t, err)
	assert.True(t, ok)

	db, ok := inst.(database.Database)
	require.True(t, ok)
	assert.Equal(t, "trading", db.Name())
	assert.Equal(t, adapter.Loaded, ctx.State(adapter.KindDatabase, "test", "mydb"))

	// Any alias of the same adapter returns the cached instance.
	again, err := ctx.Database("test", "pg")
	require.NoError(t, err)
	assert.Same(t, db, again)
}

func TestGetAdapterFromConfig_EnvSelection(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithBroker("live", "alpaca", "env", "prod").
		WithBroker("paper-alpaca", "apca", "env", "test, dev", "endpoint", "https://paper-api.alpaca.markets").
		WithBroker("sim", "paper").
		WithSecrets("broker", "live", "key_id", "LIVE", "secret_key", "x").
		WithSecrets("broker", "paper-alpaca", "key_id", "PAPER", "secret_key", "y").
		Config("test")
	ctx := app.New(cfg)
	defer ctx.Close()

	b, err := ctx.Broker("test", "alpaca")
	require.NoError(t, err)
	assert.Equal(t, "paper-alpaca", b.ConfigID())
	assert.Equal(t, "test", b.Env())

	b, err = ctx.Broker("prod", "apca")
	require.NoError(t, err)
	assert.Equal(t, "live", b.ConfigID())

	// A section without env serves every environment.
	b, err = ctx.Broker("staging", "simulator")
	require.NoError(t, err)
	assert.Equal(t, "sim", b.ConfigID())

	_, err = ctx.Broker("staging", "alpaca")
	assert.ErrorIs(t, err, gtaerrors.ErrNoMatchingSection)
}

func TestGetAdapterFromConfig_Errors(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithBroker("weird", "ib").
		WithBroker("sim", "paper").
		Config("test")
	ctx := app.New(cfg)
	defer ctx.Close()

	_, err := ctx.GetAdapterFromConfig(adapter.KindBroker, "test", "not-a-broker")
	assert.ErrorIs(t, err, gtaerrors.ErrUnknownAdapterType)

	_, err = ctx.GetAdapterFromConfig("exchange", "test", "paper")
	assert.ErrorIs(t, err, gtaerrors.ErrUnknownAdapterType)

	_, err = ctx.GetAdapterFromConfig(adapter.KindDatabase, "test", "postgres")
	assert.ErrorIs(t, err, gtaerrors.ErrNoMatchingSection)

	// Unresolvable sections are skipped while searching.
	b, err := ctx.GetAdapterFromConfig(adapter.KindBroker, "test", "sim")
	require.NoError(t, err)
	assert.Equal(t, "sim", b.ConfigID())
}

func TestGetAdapterFromConfig_ParseErrorPropagates(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithRaw("databases.conf", "host = localhost\n[mydb]\ntype = postgres\n").
		Config("test")
	ctx := app.New(cfg)

	_, err := ctx.Database("test", "postgres")
	assert.ErrorIs(t, err, gtaerrors.ErrParse)
}

func TestFailuresAreCached(t *testing.T) {
	t.Parallel()

	builder := mydbConfDir(t)
	cfg := builder.Config("test")
	m := metrics.NewIsolated()
	ctx := app.New(cfg, app.WithMetrics(m))
	defer ctx.Close()

	_, err := ctx.Database("test", "postgres")
	require.ErrorIs(t, err, gtaerrors.ErrCredentialsNotFound)

	// Fixing the secrets file has no effect until Reload.
	secrets := filepath.Join(cfg.Settings.ConfDir, ".secrets.conf")
	require.NoError(t, os.WriteFile(secrets, []byte("[database::mydb]\nusername = trader\n"), 0600))

	_, err = ctx.Database("test", "postgres")
	require.ErrorIs(t, err, gtaerrors.ErrCredentialsNotFound)

	require.NoError(t, ctx.Reload())
	assert.Equal(t, adapter.Unloaded, ctx.State(adapter.KindDatabase, "test", "mydb"))

	db, err := ctx.Database("test", "postgres")
	require.NoError(t, err)
	assert.Equal(t, "database::mydb", db.SecretsID())

	loads := m.LoadsTotal()
	assert.Equal(t, 1.0, testutil.ToFloat64(loads.WithLabelValues("database", "postgres", metrics.ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(loads.WithLabelValues("database", "postgres", metrics.ResultCached)))
	assert.Equal(t, 1.0, testutil.ToFloat64(loads.WithLabelValues("database", "postgres", metrics.ResultLoaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReloadsTotal()))
}

func TestReload_KeepsHandedOutInstances(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithBroker("sim", "paper", "starting_cash", "500").
		Config("test")
	ctx := app.New(cfg)
	defer ctx.Close()

	first, err := ctx.Broker("test", "paper")
	require.NoError(t, err)

	path := filepath.Join(cfg.Settings.ConfDir, "brokers.conf")
	require.NoError(t, os.WriteFile(path, []byte("[sim]\ntype = paper\nstarting_cash = 900\n"), 0600))
	require.NoError(t, ctx.Reload())

	second, err := ctx.Broker("test", "paper")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, "500", first.(*broker.Paper).StartingCash().String())
	assert.Equal(t, "900", second.(*broker.Paper).StartingCash().String())
}

func TestReload_ErrorKeepsSnapshot(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).WithBroker("sim", "paper").Config("test")
	ctx := app.New(cfg)
	defer ctx.Close()

	_, err := ctx.Broker("test", "paper")
	require.NoError(t, err)

	path := filepath.Join(cfg.Settings.ConfDir, "brokers.conf")
	require.NoError(t, os.WriteFile(path, []byte("broken"), 0600))
	require.ErrorIs(t, ctx.Reload(), gtaerrors.ErrParse)

	_, err = ctx.Broker("test", "paper")
	assert.NoError(t, err)
}

func TestRetire_ClosesReplacedSnapshots(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithBroker("alpaca-paper", "alpaca").
		WithSecrets("broker", "alpaca-paper", "key_id", "PK", "secret_key", "s").
		Config("test")
	ctx := app.New(cfg)
	defer ctx.Close()

	first, err := ctx.Broker("test", "alpaca")
	require.NoError(t, err)

	require.NoError(t, ctx.Reload())
	require.NoError(t, ctx.Reload())
	assert.Equal(t, 2, ctx.Retired())

	require.NoError(t, ctx.Retire())
	assert.Equal(t, 0, ctx.Retired())
	_, err = first.(*broker.Alpaca).KeyID()
	assert.Error(t, err, "retired credentials are wiped")

	current, err := ctx.Broker("test", "alpaca")
	require.NoError(t, err)
	id, err := current.(*broker.Alpaca).KeyID()
	require.NoError(t, err)
	assert.Equal(t, "PK", id)
}

func TestRetire_KeepsRetiredCountBounded(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).WithBroker("sim", "paper").Config("test")
	ctx := app.New(cfg)
	defer ctx.Close()

	for i := 0; i < 100; i++ {
		_, err := ctx.Broker("test", "paper")
		require.NoError(t, err)
		require.NoError(t, ctx.Reload())
		require.NoError(t, ctx.Retire())
		require.Equal(t, 0, ctx.Retired())
	}
}

func TestPanickingLoadReleasesWaiters(t *testing.T) {
	t.Parallel()

	brokers := adapter.NewRegistry[broker.Broker](adapter.KindBroker)
	brokers.MustRegister(adapter.Descriptor[broker.Broker]{
		Name:      "exploding",
		TypeNames: []string{"exploding"},
		Load: func(adapter.Input) (broker.Broker, error) {
			panic("boom")
		},
	})

	cfg := gtatest.NewConfDir(t).WithBroker("bad", "exploding").Config("test")
	ctx := app.New(cfg, app.WithBrokers(brokers))
	defer ctx.Close()

	require.Panics(t, func() { _, _ = ctx.Broker("test", "exploding") })
	assert.Equal(t, adapter.Failed, ctx.State(adapter.KindBroker, "test", "bad"))

	done := make(chan error, 1)
	go func() {
		_, err := ctx.Broker("test", "exploding")
		done <- err
	}()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
	case <-time.After(5 * time.Second):
		t.Fatal("second request blocked on the panicked load")
	}
}

func TestByID(t *testing.T) {
	t.Parallel()

	cfg := mydbConfDir(t).
		WithDatabase("reports", "mysql", "host", "db", "port", "3306", "database", "reports").
		WithSecrets("database", "mydb", "username", "trader").
		WithSecrets("database", "reports", "username", "reporter").
		Config("test")
	ctx := app.New(cfg)
	defer ctx.Close()

	inst, err := ctx.ByID(adapter.KindDatabase, adapter.Criteria{ID: "reports", Type: "mariadb"})
	require.NoError(t, err)
	assert.Equal(t, "test", inst.Env())
	assert.Equal(t, "mysql", inst.TypeName())

	_, err = ctx.ByID(adapter.KindDatabase, adapter.Criteria{ID: "mydb", Type: "mysql"})
	assert.ErrorIs(t, err, gtaerrors.ErrNoMatchingSection)

	_, err = ctx.ByID(adapter.KindDatabase, adapter.Criteria{ID: "mydb", Env: "prod"})
	assert.ErrorIs(t, err, gtaerrors.ErrNoMatchingSection)

	_, err = ctx.ByID(adapter.KindDatabase, adapter.Criteria{ID: "nope"})
	assert.ErrorIs(t, err, gtaerrors.ErrNoMatchingSection)

	_, err = ctx.ByID(adapter.KindDatabase, adapter.Criteria{Env: "test"})
	assert.ErrorIs(t, err, gtaerrors.ErrInvalidCriteria)
}

func TestLoadAll(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithBroker("alpaca-paper", "alpaca").
		WithBroker("sim", "sim").
		WithBroker("prod-only", "paper", "env", "prod").
		WithBroker("broken", "paper", "starting_cash", "lots").
		Config("test")
	ctx := app.New(cfg)
	defer ctx.Close()

	results, err := ctx.LoadAll(adapter.KindBroker, "test")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "alpaca-paper", results[0].Section)
	assert.ErrorIs(t, results[0].Err, gtaerrors.ErrCredentialsNotFound)
	assert.Equal(t, "alpaca", results[0].Type)

	assert.Equal(t, "sim", results[1].Section)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "paper", results[1].Type)
	assert.NotNil(t, results[1].Instance)

	assert.Equal(t, "broken", results[2].Section)
	assert.ErrorIs(t, results[2].Err, gtaerrors.ErrCast)
}

func TestConcurrentRequestsShareOneLoad(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).WithBroker("sim", "paper").Config("test")
	m := metrics.NewIsolated()
	ctx := app.New(cfg, app.WithMetrics(m))
	defer ctx.Close()

	const workers = 16
	got := make([]broker.Broker, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := ctx.Broker("test", "sim")
			assert.NoError(t, err)
			got[i] = b
		}(i)
	}
	wg.Wait()

	for _, b := range got[1:] {
		assert.Same(t, got[0], b)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal().WithLabelValues("broker", "paper", metrics.ResultLoaded)))
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	cfg := mydbConfDir(t).
		WithDatabase("reports", "mariadb", "host", "db", "port", "3306", "database", "reports", "env", "prod, test").
		WithDatabase("dup", "pg", "host", "db", "port", "1", "database", "x").
		WithDatabase("odd", "oracle").
		WithSecrets("database", "mydb", "username", "trader").
		WithSecrets("database", "dup", "username", "a").
		WithSecrets("Database", "DUP", "username", "b").
		Config("test")
	ctx := app.New(cfg)

	infos, err := ctx.Describe(adapter.KindDatabase)
	require.NoError(t, err)
	require.Len(t, infos, 4)

	assert.Equal(t, app.SectionInfo{
		Kind: "database", Section: "mydb", DeclaredType: "postgres", Type: "postgres",
		Envs: []string{"test"}, SecretsID: "database::mydb", Credentials: app.CredsOK,
	}, infos[0])
	assert.Equal(t, app.CredsMissing, infos[1].Credentials)
	assert.Equal(t, []string{"prod", "test"}, infos[1].Envs)
	assert.Equal(t, app.CredsAmbiguous, infos[2].Credentials)
	assert.Equal(t, "postgres", infos[2].Type)
	assert.Equal(t, app.CredsUnknown, infos[3].Credentials)
	assert.Contains(t, infos[3].Error, "oracle")
}

func TestClose(t *testing.T) {
	t.Parallel()

	cfg := gtatest.NewConfDir(t).
		WithBroker("alpaca-paper", "alpaca").
		WithSecrets("broker", "alpaca-paper", "key_id", "PK", "secret_key", "s").
		Config("test")
	ctx := app.New(cfg)

	b, err := ctx.Broker("test", "alpaca")
	require.NoError(t, err)
	require.NoError(t, ctx.Close())

	_, err = b.(*broker.Alpaca).KeyID()
	assert.Error(t, err, "credentials are wiped on close")
}

func TestDebugLogsNeverContainSecrets(t *testing.T) {
	t.Parallel()

	tl := gtatest.NewTestLogger(t, "debug")
	cfg := mydbConfDir(t).
		WithSecrets("database", "mydb", "username", "trader", "password", "hunter2-very-secret").
		Config("test")
	cfg.Logger = tl.Logger

	ctx := app.New(cfg)
	defer ctx.Close()

	_, err := ctx.Database("test", "postgres")
	require.NoError(t, err)

	tl.AssertContains(t, "mydb")
	tl.AssertNotContains(t, "hunter2-very-secret")
}
