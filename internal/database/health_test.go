package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestProbesCoverConfiguredBackends(t *testing.T) {
	db, err := ConnectSQLite("file::memory:")
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	probes := Probes(db, client, nil)
	require.Len(t, probes, 2)
	require.NoError(t, probes["database"](context.Background()))
	require.NoError(t, probes["redis"](context.Background()))

	mr.Close()
	require.Error(t, probes["redis"](context.Background()))
}

func TestProbesSkipMissingClients(t *testing.T) {
	require.Empty(t, Probes(nil, nil, nil))
}
