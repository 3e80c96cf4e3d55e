package api_test

import (
	"syscall"
	"testing"

	"github.com/momentics/hioload-net/api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressErrorMatchesSentinel(t *testing.T) {
	err := errors.Wrap(&api.AddressError{Input: "1.2.3.4:x", Port: "x"}, "parse")

	assert.True(t, errors.Is(err, api.ErrInvalidAddress))
	assert.False(t, errors.Is(err, api.ErrNetwork))

	ae, ok := api.IsAddressError(err)
	require.True(t, ok)
	assert.Equal(t, "1.2.3.4:x", ae.Input)
	assert.Equal(t, "x", ae.Port)
	assert.Contains(t, err.Error(), `(port "x")`)
}

func TestNetworkErrorTimeout(t *testing.T) {
	err := &api.NetworkError{Op: "recv", Code: syscall.EAGAIN, Timeout: true}

	assert.True(t, errors.Is(err, api.ErrNetwork))
	assert.True(t, errors.Is(err, api.ErrTimeout))
	assert.True(t, api.IsTimeout(errors.Wrap(err, "udp")))
	assert.True(t, errors.Is(err, syscall.EAGAIN))
	assert.True(t, err.Temporary())
}

func TestNetworkErrorHard(t *testing.T) {
	err := &api.NetworkError{Op: "connect", Endpoint: "127.0.0.1:1", Code: syscall.ECONNREFUSED}

	assert.True(t, errors.Is(err, api.ErrNetwork))
	assert.False(t, api.IsTimeout(err))
	assert.True(t, errors.Is(err, syscall.ECONNREFUSED))
	assert.Equal(t, "connect 127.0.0.1:1: "+syscall.ECONNREFUSED.Error(), err.Error())

	_, ok := api.IsAddressError(err)
	assert.False(t, ok)
}

func TestNetworkErrorMessageOnly(t *testing.T) {
	err := &api.NetworkError{Op: "accept", Msg: "no connection within 10ms", Timeout: true}
	assert.Equal(t, "accept: no connection within 10ms", err.Error())
	assert.Nil(t, err.Unwrap())
}
