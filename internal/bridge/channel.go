// bridge connects an out-of-process test runner to the game loop.
//
// Transports (websocket, graphql, mcp, webrtc) never touch game state. They put
// a Message on the Channel and wait for the game loop to Reply, which it does
// while draining the Channel once per frame.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultCommandTimeout is how long hover/click/query wait for the game loop
	DefaultCommandTimeout = 2 * time.Second
	// DefaultScreenshotTimeout is longer as the PNG has to be encoded and written
	DefaultScreenshotTimeout = 5 * time.Second

	// queueSize is the amount of requests that can be pending before Send blocks.
	// The game loop drains every frame so this should never fill up in practice.
	queueSize = 1024
)

var (
	// ErrTimeout is returned when the game loop did not reply in time
	ErrTimeout = errors.New("timed out")
	// ErrNoReply is returned when the request was dropped without a reply
	ErrNoReply = errors.New("receive acknowledgement failed")
	// ErrChannelClosed is returned when sending on a closed channel
	ErrChannelClosed = errors.New("channel closed")
)

// Reply is the game loop's answer to a Message
type Reply struct {
	OK bool
	// Data is message specific, ie. map[string]int for QueryComponents
	Data interface{}
}

// Request is a Message waiting for a Reply from the game loop
type Request struct {
	Message Message

	once  sync.Once
	reply chan Reply
}

func newRequest(msg Message) *Request {
	return &Request{
		Message: msg,
		reply:   make(chan Reply, 1),
	}
}

// Reply sends the reply back to the waiting transport. Only the first call to
// Reply or Drop has any effect.
func (req *Request) Reply(reply Reply) {
	req.once.Do(func() {
		req.reply <- reply
	})
}

// ReplyOK is shorthand for replying without data
func (req *Request) ReplyOK(ok bool) {
	req.Reply(Reply{OK: ok})
}

// Drop abandons the request, the sender gets ErrNoReply
func (req *Request) Drop() {
	req.once.Do(func() {
		close(req.reply)
	})
}

// Channel is the queue between transports and the game loop
type Channel struct {
	requests  chan *Request
	closed    chan struct{}
	closeOnce sync.Once
}

func NewChannel() *Channel {
	return &Channel{
		requests: make(chan *Request, queueSize),
		closed:   make(chan struct{}),
	}
}

// Send queues the message and blocks until the game loop replies, the timeout
// elapses or the context is cancelled.
func (c *Channel) Send(ctx context.Context, msg Message, timeout time.Duration) (Reply, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	req := newRequest(msg)
	select {
	case c.requests <- req:
	case <-c.closed:
		return Reply{}, ErrChannelClosed
	case <-timer.C:
		return Reply{}, ErrTimeout
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case reply, ok := <-req.reply:
		if !ok {
			return Reply{}, ErrNoReply
		}
		return reply, nil
	case <-timer.C:
		return Reply{}, ErrTimeout
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Drain calls fn for every pending request without blocking and returns
// how many were handled. Requests are handled in the order they were sent.
func (c *Channel) Drain(fn func(req *Request)) int {
	n := 0
	for {
		select {
		case req := <-c.requests:
			fn(req)
			n++
		default:
			return n
		}
	}
}

// Close stops accepting new requests and drops the pending ones
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	c.Drain(func(req *Request) {
		req.Drop()
	})
}
