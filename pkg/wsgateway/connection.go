package wsgateway

import (
	"sync"

	"statetree/pkg/wirecodec"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// connection wraps one upgraded websocket.Conn with the serialized send
// queue and write mutex every Transport method needs. Grounded on the
// teacher's wsConnection (pkg/server/websocket.go), extended with a
// buffered outbound channel so a blocked network write never stalls the
// Keeper goroutine that called into Transport.
type connection struct {
	sessionID string
	conn      *websocket.Conn
	codec     wirecodec.Codec

	writeMu sync.Mutex

	sendCh    chan frame
	closeOnce sync.Once
	closed    chan struct{}

	highWaterMark int
	onSlowConsumer func(sessionID string)

	log *logrus.Entry
}

// frame is one outbound message queued for the writer goroutine, already
// encoded to bytes and tagged with whether it must go out as a binary
// websocket frame.
type frame struct {
	data   []byte
	binary bool
}

func newConnection(sessionID string, conn *websocket.Conn, codec wirecodec.Codec, bufferSize, highWaterMark int, onSlowConsumer func(string), log *logrus.Entry) *connection {
	return &connection{
		sessionID:      sessionID,
		conn:           conn,
		codec:          codec,
		sendCh:         make(chan frame, bufferSize),
		closed:         make(chan struct{}),
		highWaterMark:  highWaterMark,
		onSlowConsumer: onSlowConsumer,
		log:            log,
	}
}

// enqueue queues an already-encoded frame for the writer goroutine. If the
// session's send buffer is at its high-water mark, the connection is
// treated as a slow consumer and closed rather than applying backpressure
// to the caller (the Keeper's single-writer loop), per spec.md §4.5.
func (c *connection) enqueue(f frame) {
	select {
	case <-c.closed:
		return
	default:
	}

	if len(c.sendCh) >= c.highWaterMark {
		c.log.WithField("sessionID", c.sessionID).Warn("slow consumer detected, closing session")
		c.Close()
		if c.onSlowConsumer != nil {
			c.onSlowConsumer(c.sessionID)
		}
		return
	}

	select {
	case c.sendCh <- f:
	case <-c.closed:
	}
}

// writeLoop drains sendCh and performs the actual network writes, one at a
// time, until the connection is closed. Run in its own goroutine per
// session.
func (c *connection) writeLoop() {
	for {
		select {
		case f, ok := <-c.sendCh:
			if !ok {
				return
			}
			c.writeMu.Lock()
			var err error
			if f.binary {
				err = c.conn.WriteMessage(websocket.BinaryMessage, f.data)
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, f.data)
			}
			c.writeMu.Unlock()
			if err != nil {
				c.log.WithError(err).WithField("sessionID", c.sessionID).Warn("websocket write failed")
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Close is idempotent and safe to call from any goroutine.
func (c *connection) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}
