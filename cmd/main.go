package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/snowflake/smoketest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/encoding/json"
)

var (
	// The snowflake version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "snowflake_info",
		Help:        "Snowflake information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config structs. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var (
	_ = reflect.TypeOf(rootConfig{})
	_ = reflect.TypeOf(generateConfig{})
	_ = reflect.TypeOf(renderConfig{})
	_ = reflect.TypeOf(gridConfig{})
	_ = reflect.TypeOf(infoConfig{})
	_ = reflect.TypeOf(smokeTestConfig{})
)

type rootConfig struct {
	Version bool `cli:"" env:"-" help:"Show version."`
	Help    bool `cli:"" env:"-" help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SNOWFLAKE_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"SNOWFLAKE_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SNOWFLAKE_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SNOWFLAKE_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	rootConf := rootConfig{}
	generateConf := generateConfig{
		NumParticles:       1000,
		Index:              "quadtree",
		LogLevel:           logs.InfoLevel.String(),
		LogInterval:        1000,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}
	renderConf := renderConfig{
		Output:   "flake.png",
		LogLevel: logs.InfoLevel.String(),
	}
	gridConf := gridConfig{
		NumParticles: 1000,
		LogLevel:     logs.InfoLevel.String(),
		LogInterval:  100,
	}
	infoConf := infoConfig{
		LogLevel: logs.InfoLevel.String(),
	}
	smokeTestConf := smokeTestConfig{
		Messages: smoketest.DefaultMessages,
		Timeout:  smoketest.DefaultTimeout,
		LogLevel: logs.InfoLevel.String(),
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Grows snowflakes by diffusion-limited aggregation.").
		Options(&rootConf)
	cli.Register("generate").
		Help("Sticks particles to the snowflake stored in a flake file.").
		Options(&generateConf)
	cli.Register("render").
		Help("Renders a flake file as a PNG image.").
		Options(&renderConf)
	cli.Register("grid").
		Help("Grows a snowflake on a square lattice and stores it in a flake file.").
		Options(&gridConf)
	cli.Register("info").
		Help("Prints a summary of a flake file as JSON.").
		Options(&infoConf)
	cli.Register("smoke-test").
		Help("Checks that a running generator streams points on its feed.").
		Options(&smokeTestConf)

	var err error
	switch cli.Load() {
	case "generate":
		setupLogs(generateConf.LogLevel, generateConf.LogIndent)
		closeEvents := setupEvents(generateConf.Events)
		defer closeEvents()
		err = runGenerate(ctx, generateConf)

	case "render":
		setupLogs(renderConf.LogLevel, renderConf.LogIndent)
		err = runRender(renderConf)

	case "grid":
		setupLogs(gridConf.LogLevel, gridConf.LogIndent)
		err = runGrid(ctx, gridConf)

	case "info":
		setupLogs(infoConf.LogLevel, infoConf.LogIndent)
		err = runInfo(infoConf, os.Stdout)

	case "smoke-test":
		setupLogs(smokeTestConf.LogLevel, smokeTestConf.LogIndent)
		err = runSmokeTest(ctx, smokeTestConf, os.Stdout)

	default:
		if rootConf.Version {
			fmt.Println(version)
			os.Exit(0)
		}
		err = errors.New("missing command").
			WithTag("commands", []string{"generate", "render", "grid", "info", "smoke-test"})
	}

	if err != nil {
		logs.Fatal(err)
	}
}

func setupLogs(level string, indent bool) {
	logs.SetLevel(logs.ParseLevel(level))
	logs.Encoder = json.Marshal
	if indent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal
}

// setupEvents forwards logs to an event endpoint when one is configured and
// returns the function stopping the forwarding.
func setupEvents(conf eventsConfig) func() {
	if conf.Endpoint == "" {
		return func() {}
	}

	eventsPusher := events.Pusher{
		Endpoint:      conf.Endpoint,
		FlushInterval: conf.FlushInterval,
		BatchSize:     conf.BatchSize,
		QueueSize:     conf.QueueSize,
		Transport:     metrics.HTTPTransport(http.DefaultTransport),
	}
	go eventsPusher.Start()

	eventsLogger := events.Logger{
		Pusher:           &eventsPusher,
		SDKType:          "snowflake",
		SDKVersionFamily: version,
	}
	logs.SetLogger(eventsLogger.Log)

	return func() {
		eventsPusher.Close()
	}
}
