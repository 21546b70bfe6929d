package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runGameLoop drains the channel every millisecond, like a very fast game loop
func runGameLoop(t *testing.T, ch *Channel, handle func(req *Request)) {
	t.Helper()
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ch.Drain(handle)
			}
		}
	}()
	t.Cleanup(func() {
		close(done)
		<-stopped
	})
}

func TestSendReceivesReply(t *testing.T) {
	ch := NewChannel()
	runGameLoop(t, ch, func(req *Request) {
		click, _ := req.Message.(Click)
		req.ReplyOK(click.X == 400 && click.Y == 300)
	})

	reply, err := ch.Send(context.Background(), Click{X: 400, Y: 300}, time.Second)
	require.NoError(t, err)
	assert.True(t, reply.OK)
}

func TestSendTimesOutWithoutGameLoop(t *testing.T) {
	ch := NewChannel()

	_, err := ch.Send(context.Background(), Hover{}, 20*time.Millisecond)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestSendDroppedRequest(t *testing.T) {
	ch := NewChannel()
	runGameLoop(t, ch, func(req *Request) {
		req.Drop()
	})

	_, err := ch.Send(context.Background(), QueryComponents{}, time.Second)
	assert.True(t, errors.Is(err, ErrNoReply))
}

func TestSendRespectsContext(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ch.Send(ctx, Hover{}, time.Second)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOnlyFirstReplyCounts(t *testing.T) {
	req := newRequest(Hover{})
	req.ReplyOK(true)
	req.ReplyOK(false)
	req.Drop()

	reply, ok := <-req.reply
	require.True(t, ok)
	assert.True(t, reply.OK)
}

func TestDrainKeepsOrder(t *testing.T) {
	ch := NewChannel()
	for i := 0; i < 5; i++ {
		ch.requests <- newRequest(Click{X: float32(i)})
	}

	var got []float32
	n := ch.Drain(func(req *Request) {
		got = append(got, req.Message.(Click).X)
	})
	assert.Equal(t, 5, n)
	assert.Equal(t, []float32{0, 1, 2, 3, 4}, got)
	assert.Equal(t, 0, ch.Drain(func(req *Request) {}))
}

func TestCloseDropsPendingAndRejectsNew(t *testing.T) {
	ch := NewChannel()
	pending := newRequest(Hover{})
	ch.requests <- pending

	ch.Close()

	_, ok := <-pending.reply
	assert.False(t, ok, "pending request should be dropped")

	_, err := ch.Send(context.Background(), Hover{}, time.Second)
	assert.True(t, errors.Is(err, ErrChannelClosed))
}
