// Package smoketest checks that a running generator streams well-formed
// points on its feed.
package smoketest

import (
	"context"
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	hwebsocket "github.com/aukilabs/snowflake/websocket"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	DefaultMessages = 10
	DefaultTimeout  = time.Second * 30

	ErrTypeDial           = "smoke_test_dial_failed"
	ErrTypeReceive        = "smoke_test_receive_failed"
	ErrTypeInvalidMessage = "smoke_test_invalid_message"
)

type Options struct {
	// The WebSocket URL of the feed.
	Endpoint string

	UserAgent string

	// The number of point messages to receive.
	Messages int

	Timeout time.Duration
}

type Result struct {
	Endpoint string        `json:"endpoint"`
	Messages int           `json:"messages"`
	FirstN   int           `json:"first_n"`
	LastN    int           `json:"last_n"`
	Duration time.Duration `json:"duration"`
}

// Run connects to the feed and receives points until the requested number of
// messages is reached. Messages must hold finite coordinates and strictly
// increasing point counts.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Messages <= 0 {
		opts.Messages = DefaultMessages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	start := time.Now()
	res := Result{Endpoint: opts.Endpoint}

	config, err := websocket.NewConfig(opts.Endpoint, "http://localhost")
	if err != nil {
		return res, errors.New("invalid feed endpoint").
			WithType(ErrTypeDial).
			WithTag("endpoint", opts.Endpoint).
			Wrap(err)
	}
	if opts.UserAgent != "" {
		config.Header.Set("User-Agent", opts.UserAgent)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	conn, err := config.DialContext(ctx)
	if err != nil {
		return res, errors.New("dialing feed failed").
			WithType(ErrTypeDial).
			WithTag("endpoint", opts.Endpoint).
			Wrap(err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	conn.SetReadDeadline(deadline)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for res.Messages < opts.Messages {
		var s string
		if err := websocket.Message.Receive(conn, &s); err != nil {
			res.Duration = time.Since(start)
			return res, errors.New("receiving feed message failed").
				WithType(ErrTypeReceive).
				WithTag("endpoint", opts.Endpoint).
				WithTag("received", res.Messages).
				Wrap(err)
		}

		var msg hwebsocket.Message
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			res.Duration = time.Since(start)
			return res, errors.New("decoding feed message failed").
				WithType(ErrTypeInvalidMessage).
				WithTag("message", s).
				Wrap(err)
		}

		if err := validateMessage(msg, res); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}

		if res.Messages == 0 {
			res.FirstN = msg.N
		}
		res.LastN = msg.N
		res.Messages++
	}

	res.Duration = time.Since(start)
	logs.WithTag("endpoint", opts.Endpoint).
		WithTag("messages", res.Messages).
		WithTag("duration", res.Duration.String()).
		Info("smoke test succeeded")
	return res, nil
}

func validateMessage(msg hwebsocket.Message, res Result) error {
	if math.IsNaN(msg.X) || math.IsInf(msg.X, 0) || math.IsNaN(msg.Y) || math.IsInf(msg.Y, 0) {
		return errors.New("feed point is not finite").
			WithType(ErrTypeInvalidMessage).
			WithTag("x", msg.X).
			WithTag("y", msg.Y)
	}

	if msg.N <= 0 || (res.Messages > 0 && msg.N <= res.LastN) {
		return errors.New("feed point count does not increase").
			WithType(ErrTypeInvalidMessage).
			WithTag("n", msg.N).
			WithTag("previous_n", res.LastN)
	}
	return nil
}
