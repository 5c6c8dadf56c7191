package server

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSameExecutable(t *testing.T) {
	t.Parallel()

	require.True(t, sameExecutable("geoalarm-server", "geoalarm-server"))
	require.True(t, sameExecutable("GEOALARM-SERVER.EXE", "geoalarm-server.exe"))
	require.True(t, sameExecutable("geoalarm-server", "geoalarm-server-debug"), "truncated comm name")
	require.False(t, sameExecutable("geoalarm-ctl", "geoalarm-server"))
	require.False(t, sameExecutable("geoalarm", "geoalarm-server"))
}

func TestOtherInstancesExcludesSelf(t *testing.T) {
	t.Parallel()

	pids, err := otherInstances()
	if err != nil {
		t.Skipf("process list unavailable: %v", err)
	}

	require.NotContains(t, pids, os.Getpid())
}
