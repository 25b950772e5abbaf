package serialparam

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelGet(t *testing.T) {
	port := NewMockPort(21.5)
	ch := NewChannel(port, "TEMP?", "TEMP")

	v, err := ch.Get()
	require.NoError(t, err)
	require.Equal(t, 21.5, v)
	require.Equal(t, []string{"TEMP?"}, port.Written())
}

func TestChannelSet(t *testing.T) {
	port := NewMockPort(0)
	ch := NewChannel(port, "TEMP?", "TEMP")

	err := ch.Set(30)
	require.NoError(t, err)
	require.Equal(t, []string{"TEMP 30"}, port.Written())
}

func TestChannelSetWithoutWriteCommand(t *testing.T) {
	port := NewMockPort(0)
	ch := NewChannel(port, "TEMP?", "")

	err := ch.Set(30)
	require.Error(t, err)
}

func TestChannelGetError(t *testing.T) {
	port := NewMockPort(0)
	port.SetError(errors.New("unplugged"))
	ch := NewChannel(port, "TEMP?", "TEMP")

	_, err := ch.Get()
	require.Error(t, err)
}
