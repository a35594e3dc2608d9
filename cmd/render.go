package main

import (
	"io"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/snowflake/flake"
	"github.com/aukilabs/snowflake/index"
	"github.com/aukilabs/snowflake/index/quadtree"
	"github.com/aukilabs/snowflake/render"
	"github.com/segmentio/encoding/json"
)

type renderConfig struct {
	FlakeFile string `cli:"" env:"SNOWFLAKE_FLAKE_FILE" help:"The file where the flake points are stored."`
	Output    string `cli:"" env:"SNOWFLAKE_OUTPUT"     help:"The PNG file to write."`
	Strict    bool   `cli:"" env:"SNOWFLAKE_STRICT"     help:"Fail on a flake file ending with an incomplete record."`
	LogLevel  string `cli:"" env:"SNOWFLAKE_LOG_LEVEL"  help:"Log level (debug|info|warning|error)."`
	LogIndent bool   `cli:"" env:"SNOWFLAKE_LOG_INDENT" help:"Indent logs."`
}

func runRender(conf renderConfig) error {
	if conf.FlakeFile == "" {
		return errors.New("flake file is required")
	}
	if conf.Output == "" {
		return errors.New("output file is required")
	}

	store := flake.New(conf.FlakeFile, flake.WithStrict(conf.Strict))
	if err := render.RenderFile(store, conf.Output); err != nil {
		return errors.New("rendering flake failed").
			WithTag("flake_file", conf.FlakeFile).
			Wrap(err)
	}
	return nil
}

type infoConfig struct {
	FlakeFile string `cli:"" env:"SNOWFLAKE_FLAKE_FILE" help:"The file where the flake points are stored."`
	Strict    bool   `cli:"" env:"SNOWFLAKE_STRICT"     help:"Fail on a flake file ending with an incomplete record."`
	LogLevel  string `cli:"" env:"SNOWFLAKE_LOG_LEVEL"  help:"Log level (debug|info|warning|error)."`
	LogIndent bool   `cli:"" env:"SNOWFLAKE_LOG_INDENT" help:"Indent logs."`
}

type flakeInfo struct {
	FlakeFile        string          `json:"flake_file"`
	Points           int             `json:"points"`
	FarthestDistance float64         `json:"farthest_distance"`
	QuadTree         index.DebugInfo `json:"quadtree"`
}

func runInfo(conf infoConfig, w io.Writer) error {
	if conf.FlakeFile == "" {
		return errors.New("flake file is required")
	}

	tree, err := quadtree.Load(flake.New(conf.FlakeFile, flake.WithStrict(conf.Strict)))
	if err != nil {
		return errors.New("loading flake failed").
			WithTag("flake_file", conf.FlakeFile).
			Wrap(err)
	}

	b, err := json.MarshalIndent(flakeInfo{
		FlakeFile:        conf.FlakeFile,
		Points:           tree.Len(),
		FarthestDistance: tree.FarthestDistance(),
		QuadTree:         tree.DebugInfo(),
	}, "", "  ")
	if err != nil {
		return errors.New("encoding flake info failed").Wrap(err)
	}

	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return errors.New("writing flake info failed").Wrap(err)
	}
	return nil
}
