//go:build linux || darwin

package unixsock_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/hioload-net/addr"
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/transport/unixsock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketPath returns a short path; t.TempDir can exceed the sun_path limit on Darwin.
func socketPath(t *testing.T) addr.UnixEndpoint {
	t.Helper()
	dir, err := os.MkdirTemp("", "hn")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	ep, err := addr.NewUnixEndpoint(filepath.Join(dir, "s.sock"))
	require.NoError(t, err)
	return ep
}

func TestConnectAccept(t *testing.T) {
	ep := socketPath(t)
	acc, err := unixsock.NewAcceptor(ep)
	require.NoError(t, err)
	defer acc.Close()
	assert.Equal(t, ep, acc.LocalEndpoint())

	client, err := unixsock.Dial(ep)
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, ep, client.RemoteEndpoint())

	server, err := acc.Accept(time.Second)
	require.NoError(t, err)
	require.True(t, server.IsValid())
	defer server.Close()

	assert.True(t, server.RemoteEndpoint().IsValid())
	assert.True(t, server.RemoteEndpoint().IsUnnamed())
	assert.Equal(t, ep, server.LocalEndpoint())

	require.NoError(t, client.SendAll([]byte("over unix")))
	got, err := server.Recv(make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, "over unix", string(got))

	require.NoError(t, client.Close())
	_, err = server.Recv(make([]byte, 64))
	assert.ErrorIs(t, err, io.EOF)
}

func TestAcceptTimeout(t *testing.T) {
	acc, err := unixsock.NewAcceptor(socketPath(t))
	require.NoError(t, err)
	defer acc.Close()

	s, err := acc.Accept(10 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, s.IsValid())
}

func TestBindTwiceToExistingPathFails(t *testing.T) {
	ep := socketPath(t)
	acc, err := unixsock.NewAcceptor(ep)
	require.NoError(t, err)
	defer acc.Close()

	_, err = unixsock.NewAcceptor(ep)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNetwork), "%v", err)
}

func TestDialMissingPath(t *testing.T) {
	_, err := unixsock.Dial(socketPath(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNetwork), "%v", err)
}
