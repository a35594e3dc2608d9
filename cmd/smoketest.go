package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/snowflake/smoketest"
	"github.com/segmentio/encoding/json"
)

type smokeTestConfig struct {
	Endpoint  string        `cli:"" env:"SNOWFLAKE_SMOKE_TEST_ENDPOINT" help:"The WebSocket URL of a generator feed, e.g. ws://localhost:18190/feed."`
	Messages  int           `cli:"" env:"SNOWFLAKE_SMOKE_TEST_MESSAGES" help:"The number of point messages to receive."`
	Timeout   time.Duration `cli:"" env:"SNOWFLAKE_SMOKE_TEST_TIMEOUT"  help:"The maximum duration of the test."`
	LogLevel  string        `cli:"" env:"SNOWFLAKE_LOG_LEVEL"           help:"Log level (debug|info|warning|error)."`
	LogIndent bool          `cli:"" env:"SNOWFLAKE_LOG_INDENT"          help:"Indent logs."`
}

func runSmokeTest(ctx context.Context, conf smokeTestConfig, w io.Writer) error {
	if conf.Endpoint == "" {
		return errors.New("smoke test endpoint is required")
	}

	res, err := smoketest.Run(ctx, smoketest.Options{
		Endpoint:  conf.Endpoint,
		UserAgent: fmt.Sprintf("Snowflake %s", version),
		Messages:  conf.Messages,
		Timeout:   conf.Timeout,
	})
	if err != nil {
		return errors.New("smoke test failed").Wrap(err)
	}

	b, err := json.Marshal(res)
	if err != nil {
		return errors.New("encoding smoke test result failed").Wrap(err)
	}

	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return errors.New("writing smoke test result failed").Wrap(err)
	}
	return nil
}
