package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/phoenix.go/pkg/link/stream"
)

func message(n int) []byte {
	msg := make([]byte, n)
	for i := range msg {
		msg[i] = byte(i*7 + 1)
	}
	return msg
}

func TestFragmentRoundTrip(t *testing.T) {
	testCases := []struct {
		size  int
		count int
	}{
		{1, 1},
		{FragmentDataSize, 1},
		{FragmentDataSize + 1, 2},
		{90, 3},
		{MaxMessageSize, MaxFragments},
	}
	var f Fragmenter
	var r Reassembler
	for _, tc := range testCases {
		msg := message(tc.size)
		frags, err := f.Split(msg)
		require.NoError(t, err)
		require.Len(t, frags, tc.count)
		for i, frag := range frags {
			require.LessOrEqual(t, len(frag), MaxPayload)
			require.Equal(t, byte(i<<4|tc.count), frag[1])
			got, err := r.Add(frag)
			require.NoError(t, err)
			if i < len(frags)-1 {
				require.Nil(t, got)
			} else {
				require.Equal(t, msg, got)
			}
		}
	}
	require.Zero(t, r.Dropped())
}

func TestFragmentTooLarge(t *testing.T) {
	var f Fragmenter
	_, err := f.Split(nil)
	require.True(t, errors.Is(err, ErrMessageTooLarge))
	_, err = f.Split(make([]byte, MaxMessageSize+1))
	require.True(t, errors.Is(err, ErrMessageTooLarge))
}

func TestReassemblerOutOfOrderAndDuplicates(t *testing.T) {
	var f Fragmenter
	var r Reassembler
	msg := message(90)
	frags, err := f.Split(msg)
	require.NoError(t, err)
	got, err := r.Add(frags[2])
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = r.Add(frags[2])
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = r.Add(frags[0])
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = r.Add(frags[1])
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestReassemblerDropsPartial(t *testing.T) {
	var f Fragmenter
	var r Reassembler
	first, err := f.Split(message(90))
	require.NoError(t, err)
	second, err := f.Split(message(60))
	require.NoError(t, err)

	_, err = r.Add(first[0])
	require.NoError(t, err)
	for i, frag := range second {
		got, err := r.Add(frag)
		require.NoError(t, err)
		if i == len(second)-1 {
			require.Equal(t, message(60), got)
		}
	}
	require.Equal(t, 1, r.Dropped())
}

func TestReassemblerBadFragments(t *testing.T) {
	var r Reassembler
	for _, frag := range [][]byte{
		nil,
		{1, 0x11},
		{1, 0x10, 0},
		{1, 0x22, 0},
		make([]byte, MaxPayload+1),
	} {
		_, err := r.Add(frag)
		require.True(t, errors.Is(err, ErrBadFragment), "%v", frag)
	}
}

func waitRecv(t *testing.T, a Adapter) []byte {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg, err := a.Recv()
		require.NoError(t, err)
		if msg != nil {
			return msg
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no message received")
	return nil
}

func TestPipeOverStream(t *testing.T) {
	for _, fragment := range []bool{false, true} {
		c1, c2 := net.Pipe()
		tx := NewPipe(stream.New(c1))
		rx := NewPipe(stream.New(c2))
		tx.Fragment, rx.Fragment = fragment, fragment

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 2)
		go func() { done <- tx.Run(ctx) }()
		go func() { done <- rx.Run(ctx) }()

		msg, err := rx.Recv()
		require.NoError(t, err)
		require.Nil(t, msg)

		for i := 0; i < 3; i++ {
			sent := bytes.Repeat([]byte{byte(i)}, 90)
			require.NoError(t, tx.Send(sent))
			require.Equal(t, sent, waitRecv(t, rx))
		}

		cancel()
		<-done
		<-done
		_, err = rx.Recv()
		require.True(t, errors.Is(err, ErrClosed))
		require.True(t, errors.Is(tx.Send([]byte{1}), ErrClosed))
	}
}

func TestPipeInboxDropsOldest(t *testing.T) {
	p := NewPipe(nil)
	for i := 0; i < DefaultInboxSize+2; i++ {
		p.enqueue([]byte{byte(i)})
	}
	for i := 2; i < DefaultInboxSize+2; i++ {
		msg, err := p.Recv()
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, msg)
	}
	msg, err := p.Recv()
	require.NoError(t, err)
	require.Nil(t, msg)
}

type failingReader struct{ err error }

func (r failingReader) ReadPacket() ([]byte, error) { return nil, r.err }
func (r failingReader) WritePacket([]byte) error { return nil }

func TestPipeRunErrors(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		stored bool
	}{
		{"eof", io.EOF, false},
		{"wrapped eof", fmt.Errorf("read: %w", io.EOF), false},
		{"wrapped cancel", fmt.Errorf("read: %w", context.Canceled), false},
		{"failure", errors.New("usb unplugged"), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPipe(failingReader{err: tc.err})
			require.True(t, errors.Is(p.Run(context.Background()), tc.err))
			_, err := p.Recv()
			require.True(t, errors.Is(err, ErrClosed))
			if tc.stored {
				require.Contains(t, err.Error(), "usb unplugged")
			} else {
				require.Equal(t, ErrClosed, err)
			}
		})
	}
}

func TestReassemblerExpiresPartial(t *testing.T) {
	// two fragmenters hand out the same sequence number, as one does
	// after wrapping around.
	var f1, f2 Fragmenter
	first, err := f1.Split(message(90))
	require.NoError(t, err)
	other := bytes.Repeat([]byte{0x5a}, 90)
	second, err := f2.Split(other)
	require.NoError(t, err)
	require.Equal(t, first[0][:2], second[0][:2])

	var r Reassembler
	start := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	got, err := r.AddAt(first[0], start)
	require.NoError(t, err)
	require.Nil(t, got)

	later := start.Add(DefaultReassemblyTimeout + time.Millisecond)
	for i, frag := range second[1:] {
		got, err = r.AddAt(frag, later)
		require.NoError(t, err)
		require.Nil(t, got, "fragment %d", i+1)
	}
	require.Equal(t, 1, r.Dropped())
	got, err = r.AddAt(second[0], later)
	require.NoError(t, err)
	require.Equal(t, other, got)

	// within the timeout fragments still combine.
	r.Timeout = time.Second
	for i, frag := range first {
		got, err = r.AddAt(frag, later.Add(time.Duration(i)*300*time.Millisecond))
		require.NoError(t, err)
	}
	require.Equal(t, message(90), got)
	require.Equal(t, 1, r.Dropped())
}
