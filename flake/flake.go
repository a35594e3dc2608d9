// Package flake stores the points of a snowflake in an append-only file.
//
// The file is a sequence of 16 byte records, each holding the x and y
// coordinates of a point as big-endian IEEE-754 doubles. Points are buffered
// in memory and appended to the file on flush.
package flake

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/snowflake/models"
)

const (
	// MaxBufferedPoints is the number of buffered points that triggers an
	// automatic flush.
	MaxBufferedPoints = 1000

	// RecordSize is the size in bytes of an encoded point.
	RecordSize = 16

	ErrTypeRead      = "flake_read_failed"
	ErrTypeWrite     = "flake_write_failed"
	ErrTypeTruncated = "flake_truncated"
)

// Option configures a Flake.
type Option func(*Flake)

// WithStrict makes Points fail when the file ends with an incomplete record
// instead of discarding it.
func WithStrict(v bool) Option {
	return func(f *Flake) {
		f.strict = v
	}
}

// Flake is a point store backed by a file. It is not safe for concurrent use.
type Flake struct {
	path     string
	strict   bool
	buffered []models.Point
}

// New returns a store using the file at path. The file is created on the
// first flush.
func New(path string, opts ...Option) *Flake {
	f := &Flake{
		path:     path,
		buffered: make([]models.Point, 0, MaxBufferedPoints),
	}

	for _, o := range opts {
		o(f)
	}
	return f
}

// Path returns the path of the backing file.
func (f *Flake) Path() string {
	return f.path
}

// Points reads every point persisted in the file, in insertion order.
// Buffered points are not included. A missing file holds no points.
func (f *Flake) Points() ([]models.Point, error) {
	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return []models.Point{}, nil
	}
	if err != nil {
		return nil, errors.New("opening flake file failed").
			WithType(ErrTypeRead).
			WithTag("path", f.path).
			Wrap(err)
	}
	defer file.Close()

	var points []models.Point
	if info, err := file.Stat(); err == nil {
		points = make([]models.Point, 0, info.Size()/RecordSize)
	}

	r := bufio.NewReaderSize(file, RecordSize*MaxBufferedPoints)
	record := make([]byte, RecordSize)
	for {
		n, err := io.ReadFull(r, record)
		switch err {
		case nil:
			points = append(points, DecodePoint(record))
			continue

		case io.EOF:
			return points, nil

		case io.ErrUnexpectedEOF:
			truncated := errors.New("flake file ends with an incomplete record").
				WithType(ErrTypeTruncated).
				WithTag("path", f.path).
				WithTag("points", len(points)).
				WithTag("trailing_bytes", n)
			if f.strict {
				return nil, truncated
			}
			logs.Warn(truncated)
			return points, nil

		default:
			return nil, errors.New("reading flake file failed").
				WithType(ErrTypeRead).
				WithTag("path", f.path).
				WithTag("points", len(points)).
				Wrap(err)
		}
	}
}

// Add buffers p and flushes when MaxBufferedPoints points are buffered.
func (f *Flake) Add(p models.Point) error {
	f.buffered = append(f.buffered, p)
	if len(f.buffered) >= MaxBufferedPoints {
		return f.Flush()
	}
	return nil
}

// Flush appends the buffered points to the file, creating it when absent.
// The buffer is kept when the write fails.
func (f *Flake) Flush() error {
	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return errors.New("opening flake file failed").
			WithType(ErrTypeWrite).
			WithTag("path", f.path).
			Wrap(err)
	}

	buf := make([]byte, len(f.buffered)*RecordSize)
	for i, p := range f.buffered {
		EncodePoint(buf[i*RecordSize:], p)
	}

	if _, err = file.Write(buf); err != nil {
		file.Close()
		return errors.New("writing flake file failed").
			WithType(ErrTypeWrite).
			WithTag("path", f.path).
			WithTag("points", len(f.buffered)).
			Wrap(err)
	}
	if err = file.Close(); err != nil {
		return errors.New("closing flake file failed").
			WithType(ErrTypeWrite).
			WithTag("path", f.path).
			Wrap(err)
	}

	f.buffered = f.buffered[:0]
	return nil
}

// Buffered returns the number of points waiting to be flushed.
func (f *Flake) Buffered() int {
	return len(f.buffered)
}

// EncodePoint writes p as a record into the first RecordSize bytes of b.
func EncodePoint(b []byte, p models.Point) {
	binary.BigEndian.PutUint64(b[0:8], math.Float64bits(p.X))
	binary.BigEndian.PutUint64(b[8:16], math.Float64bits(p.Y))
}

// DecodePoint reads a point from the first RecordSize bytes of b.
func DecodePoint(b []byte) models.Point {
	return models.Point{
		X: math.Float64frombits(binary.BigEndian.Uint64(b[0:8])),
		Y: math.Float64frombits(binary.BigEndian.Uint64(b[8:16])),
	}
}
