package transport_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/momentics/hioload-net/addr"
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/transport"
	"github.com/momentics/hioload-net/transport/tcp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtaci/smux"
	"golang.org/x/sync/errgroup"
)

func connPair(t *testing.T) (*transport.Conn, *transport.Conn) {
	t.Helper()
	acc, err := tcp.NewAcceptor(addr.NewEndpoint(addr.V4Loopback, 0))
	require.NoError(t, err)
	defer acc.Close()

	client, err := tcp.Dial(acc.LocalEndpoint())
	require.NoError(t, err)
	server, err := acc.Accept(time.Second)
	require.NoError(t, err)
	require.True(t, server.IsValid())

	c, s := transport.NewConn(client), transport.NewConn(server)
	t.Cleanup(func() {
		_ = c.Close()
		_ = s.Close()
	})
	return c, s
}

func TestConnReadWrite(t *testing.T) {
	c, s := connPair(t)

	n, err := c.Write([]byte("stream"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	buf := make([]byte, 6)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, "stream", string(buf))

	n, err = s.Read(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestConnCloseUnblocksRead(t *testing.T) {
	_, s := connPair(t)

	var g errgroup.Group
	g.Go(func() error {
		_, err := s.Read(make([]byte, 8))
		return err
	})
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, g.Wait(), io.EOF)

	_, err := s.Write([]byte("x"))
	assert.True(t, errors.Is(err, api.ErrClosed))
	assert.NoError(t, s.Close())
}

func TestSmuxOverConn(t *testing.T) {
	c, s := connPair(t)

	serverSess, err := smux.Server(s, smux.DefaultConfig())
	require.NoError(t, err)
	defer serverSess.Close()
	clientSess, err := smux.Client(c, smux.DefaultConfig())
	require.NoError(t, err)
	defer clientSess.Close()

	payloads := [][]byte{[]byte("first stream"), bytes.Repeat([]byte{0xab}, 64<<10)}

	var g errgroup.Group
	g.Go(func() error {
		for range payloads {
			st, err := serverSess.AcceptStream()
			if err != nil {
				return err
			}
			go func(st *smux.Stream) {
				defer st.Close()
				_, _ = io.Copy(st, st)
			}(st)
		}
		return nil
	})

	for _, p := range payloads {
		st, err := clientSess.OpenStream()
		require.NoError(t, err)
		_, err = st.Write(p)
		require.NoError(t, err)
		got := make([]byte, len(p))
		_, err = io.ReadFull(st, got)
		require.NoError(t, err)
		assert.Equal(t, p, got)
		require.NoError(t, st.Close())
	}
	require.NoError(t, g.Wait())
}
