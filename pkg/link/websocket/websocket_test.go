package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/phoenix.go/pkg/link"
)

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubRelay(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rid"

	aircraft, err := Dial(wsURL)
	require.NoError(t, err)
	ground, err := Dial(wsURL)
	require.NoError(t, err)
	waitFor(t, func() bool { return hub.Clients() == 2 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go aircraft.Run(ctx)
	go ground.Run(ctx)

	sent := make([]byte, 90)
	sent[0], sent[89] = 0xf0, 0x0f
	require.NoError(t, aircraft.Send(sent))

	var got []byte
	waitFor(t, func() bool {
		msg, err := ground.Recv()
		require.NoError(t, err)
		got = msg
		return msg != nil
	})
	require.Equal(t, sent, got)

	// the sender doesn't receive its own message.
	msg, err := aircraft.Recv()
	require.NoError(t, err)
	require.Nil(t, msg)

	cancel()
	waitFor(t, func() bool { return hub.Clients() == 0 })
	_, err = ground.Recv()
	require.ErrorIs(t, err, link.ErrClosed)
}
