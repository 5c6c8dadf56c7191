package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/geoalarm/internal/config"
	"github.com/oshokin/geoalarm/internal/service/common"
	"github.com/oshokin/geoalarm/internal/service/server"
)

// reservePort returns a free local address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// startDaemon writes cfg to a temporary settings file, runs the daemon and
// waits until it answers. The returned stop function blocks until Run returns.
func startDaemon(t *testing.T, cfg *config.Config) (client *common.Client, stop func()) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath: cfgPath,
			Silent:     true,
		})
	}()

	client, err := common.Dial(ctx, cfg.ServerAddress, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := client.Status(ctx)
		return err == nil
	}, 10*time.Second, 20*time.Millisecond, "daemon did not start")

	return client, func() {
		_ = client.Close()

		cancel()
		require.NoError(t, <-done)
	}
}
