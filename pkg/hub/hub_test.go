package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func recv(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case m, ok := <-c.send:
		return m, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

func TestBroadcastReachesClients(t *testing.T) {
	h, _ := startHub(t)
	a, b := newClient(h), newClient(h)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]int{"frame": 7}))
	for _, c := range []*Client{a, b} {
		m, ok := recv(t, c)
		require.True(t, ok)
		assert.Equal(t, JSONMessage, m.Type)
		assert.JSONEq(t, `{"frame":7}`, string(m.Data))
	}

	h.BroadcastBinary([]byte{0xff, 0xd8})
	m, _ := recv(t, a)
	assert.Equal(t, BinaryMessage, m.Type)
}

func TestUnregister(t *testing.T) {
	h, _ := startHub(t)
	c := newClient(h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	c.leave()
	_, ok := recv(t, c)
	assert.False(t, ok, "send channel should be closed")
	assert.Zero(t, h.ClientCount())
}

func TestSlowClientDropped(t *testing.T) {
	h, _ := startHub(t)
	c := newClient(h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	for i := 0; i < sendBuffer+1; i++ {
		h.BroadcastJSON(i)
	}
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)

	n := 0
	for range c.send {
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestStopClosesClients(t *testing.T) {
	h := New("stop")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	c := newClient(h)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)

	cancel()
	<-h.Done()
	_, ok := <-c.send
	assert.False(t, ok)
	assert.False(t, h.IsRunning())

	late := newClient(h)
	_, ok = <-late.send
	assert.False(t, ok, "registering after stop returns a closed client")
	late.leave()
}

func TestBroadcastNeverBlocks(t *testing.T) {
	h := New("idle") // not running
	for i := 0; i < 300; i++ {
		h.Broadcast(NewJSONMessage([]byte("{}")))
	}
	assert.EqualValues(t, 300-256, h.Dropped())
	assert.Equal(t, "idle", h.Name())
}
