// Package websocket streams the points added to a growing snowflake to
// WebSocket clients.
package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/snowflake/models"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize = 256

	ErrTypeFeedClosed = "feed_closed"
)

// Message is the JSON message sent for every point added to the flake.
type Message struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// The number of points in the flake once the point is added.
	N int `json:"n"`
}

// NewMessage returns the message announcing p as the nth point.
func NewMessage(p models.Point, n int) Message {
	return Message{X: p.X, Y: p.Y, N: n}
}

// FeedStats are the counters of a feed.
type FeedStats struct {
	Clients int `json:"clients"`
	Sent    int `json:"sent"`
	Dropped int `json:"dropped"`
}

// Feed fans out published points to every connected client.
//
// Publish never blocks: each client has a buffer of pending messages and
// messages published while it is full are dropped for that client.
type Feed struct {
	summaryInterval    time.Duration
	closeSummaryWorker func()

	mutex   sync.Mutex
	clients map[string]*client
	closed  bool
	stats   FeedStats
	counter map[string]int
}

// NewFeed returns a feed logging a summary of its activity every
// summaryInterval. A non-positive interval disables summaries.
func NewFeed(summaryInterval time.Duration) *Feed {
	ctx, cancel := context.WithCancel(context.Background())

	f := &Feed{
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		clients:            make(map[string]*client),
		counter:            make(map[string]int),
	}

	if summaryInterval > 0 {
		go f.startSummaryWorker(ctx)
	}
	return f
}

// Publish queues msg for every connected client.
func (f *Feed) Publish(msg Message) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for _, c := range f.clients {
		select {
		case c.sendChan <- msg:
		default:
			f.stats.Dropped++
			f.counter["dropped"]++
			instrumentDrop()
		}
	}
}

// Stats returns the current counters of the feed.
func (f *Feed) Stats() FeedStats {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	stats := f.stats
	stats.Clients = len(f.clients)
	return stats
}

// Handler returns the WebSocket server accepting feed clients.
func (f *Feed) Handler() websocket.Server {
	return websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			f.handle(conn)
		},
	}
}

// Close disconnects every client and rejects new ones.
func (f *Feed) Close() {
	f.mutex.Lock()
	f.closed = true
	for _, c := range f.clients {
		c.disconnect(errors.New("feed closed").WithType(ErrTypeFeedClosed))
	}
	f.mutex.Unlock()

	f.closeSummaryWorker()
	f.logSummary()
}

func (f *Feed) handle(conn *websocket.Conn) {
	c, err := f.register()
	if err != nil {
		logs.Debug(err)
		return
	}
	defer f.unregister(c)

	logs.WithTag("client_id", c.id).
		WithTag("remote_addr", conn.Request().RemoteAddr).
		Info("feed client connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.startReceiving(conn)
	}()

	err = c.startSending(conn, f.incSent)
	conn.Close()
	wg.Wait()

	logs.WithTag("client_id", c.id).
		WithTag("reason", err.Error()).
		Info("feed client disconnected")
}

func (f *Feed) register() (*client, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.closed {
		return nil, errors.New("feed closed").WithType(ErrTypeFeedClosed)
	}

	c := &client{
		id:             uuid.NewString(),
		sendChan:       make(chan Message, sendChanSize),
		disconnectChan: make(chan error, 1),
	}
	f.clients[c.id] = c
	f.counter["connected"]++
	instrumentConnect()
	return c, nil
}

func (f *Feed) unregister(c *client) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if _, ok := f.clients[c.id]; !ok {
		return
	}
	delete(f.clients, c.id)
	f.counter["disconnected"]++
	instrumentDisconnect()
}

func (f *Feed) incSent(size int) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.stats.Sent++
	f.counter["sent"]++
	instrumentSend(size)
}

func (f *Feed) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(f.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			f.logSummary()
		}
	}
}

func (f *Feed) logSummary() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if len(f.counter) == 0 {
		return
	}

	entry := logs.WithTag("clients", len(f.clients)).
		WithTag("time_interval", f.summaryInterval)

	for k, v := range f.counter {
		entry = entry.WithTag(k, v)
		delete(f.counter, k)
	}

	entry.Info("feed summary")
}

type client struct {
	id             string
	sendChan       chan Message
	disconnectChan chan error
}

// disconnect stops the client with err. Only the first error is kept.
func (c *client) disconnect(err error) {
	select {
	case c.disconnectChan <- err:
	default:
	}
}

func (c *client) startSending(conn *websocket.Conn, onSent func(size int)) error {
	for {
		select {
		case err := <-c.disconnectChan:
			return err

		case msg := <-c.sendChan:
			b, err := json.Marshal(msg)
			if err != nil {
				return errors.New("encoding message failed").Wrap(err)
			}

			if err = websocket.Message.Send(conn, string(b)); err != nil {
				return errors.New("sending message failed").Wrap(err)
			}
			onSent(len(b))
		}
	}
}

// startReceiving discards incoming messages until the connection fails.
func (c *client) startReceiving(conn *websocket.Conn) {
	for {
		var msg string
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			c.disconnect(errors.New("receiving message failed").Wrap(err))
			return
		}
	}
}
