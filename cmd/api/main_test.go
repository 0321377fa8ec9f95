package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRootCommand_Subcommands(t *testing.T) {
	for _, name := range []string{"serve", "migrate", "seed"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	f := seedCmd.Flags().Lookup("file")
	require.NotNil(t, f)
	assert.Equal(t, "f", f.Shorthand)
	assert.NotNil(t, serveCmd.Flags().Lookup("migrate"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("env-file"))
}

func TestWatchDB_PingsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	core, logs := observer.New(zap.InfoLevel)

	calls := 0
	ping := func(context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errors.New("connection refused")
	}

	err := watchDB(ctx, ping, time.Millisecond, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, logs.FilterMessage("db ping failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("shutdown requested").Len())
}

func TestWatchDB_HealthyPingIsQuiet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	core, logs := observer.New(zap.WarnLevel)

	calls := 0
	ping := func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return nil
	}

	require.NoError(t, watchDB(ctx, ping, time.Millisecond, zap.New(core)))
	assert.Equal(t, 2, calls)
	assert.Zero(t, logs.Len())
}
