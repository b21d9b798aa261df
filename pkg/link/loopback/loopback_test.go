package loopback

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/phoenix.go/pkg/link"
	"github.com/robotalks/phoenix.go/pkg/radio"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
)

var _ link.Adapter = &Adapter{}

func TestSendRecv(t *testing.T) {
	a := New(2)
	msg, err := a.Recv()
	require.NoError(t, err)
	require.Nil(t, msg)

	sent := []byte{1, 2, 3}
	require.NoError(t, a.Send(sent))
	sent[0] = 9
	msg, err = a.Recv()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, msg)
}

func TestOverwriteOldest(t *testing.T) {
	a := New(2)
	for i := byte(0); i < 5; i++ {
		require.NoError(t, a.Send([]byte{i}))
	}
	require.Equal(t, 2, a.Len())
	for _, expect := range []byte{3, 4} {
		msg, err := a.Recv()
		require.NoError(t, err)
		require.Equal(t, []byte{expect}, msg)
	}
}

func TestClose(t *testing.T) {
	a := New(0)
	require.NoError(t, a.Send([]byte{1}))
	require.NoError(t, a.Close())
	require.True(t, errors.Is(a.Send([]byte{2}), link.ErrClosed))
	msg, err := a.Recv()
	require.NoError(t, err)
	require.Equal(t, []byte{1}, msg)
	_, err = a.Recv()
	require.True(t, errors.Is(err, link.ErrClosed))
}

func TestFlipBits(t *testing.T) {
	msg := []byte{0, 0}
	FlipBits(0, 9, 100, -1)(msg)
	require.Equal(t, []byte{0x80, 0x40}, msg)
}

func TestNoisyLinkCorrected(t *testing.T) {
	r := remoteid.Record{
		SerialNumber: remoteid.MustSerialNumber("PHX0000000000000001"),
		AircraftPos:  remoteid.Position{Lat: 38.8977, Long: -77.0365, Alt: 100},
		Timestamp:    remoteid.Timestamp{Year: 2024, Month: 6, Day: 15},
	}
	a := New(0)
	// One flip in each of three different codewords.
	a.Noise = FlipBits(5, 16*10+3, 16*44+15)
	wire := radio.Frame(r).Bytes()
	require.NoError(t, a.Send(wire[:]))
	recv, err := a.Recv()
	require.NoError(t, err)
	m, err := radio.MessageFromBytes(recv)
	require.NoError(t, err)
	got, report, err := radio.Unframe(m)
	require.NoError(t, err)
	require.Equal(t, r, got)
	require.Equal(t, []int{5, 163, 719}, report.Positions())
}

func TestRandomNoiseRate(t *testing.T) {
	msg := make([]byte, 1000)
	RandomNoise(rand.New(rand.NewSource(1)), 0)(msg)
	require.Equal(t, make([]byte, 1000), msg)
	RandomNoise(rand.New(rand.NewSource(1)), 1)(msg)
	for _, b := range msg {
		require.Equal(t, byte(0xff), b)
	}
}
