// Package render draws snowflake points as a PNG image.
package render

import (
	"bufio"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/snowflake/models"
)

const (
	// Border is the margin in pixels around the bounding box of the points.
	Border = 10.0

	// MaxPixels is the largest number of pixels an image can have.
	MaxPixels = 1 << 28

	ErrTypeNoPoints      = "no_points_to_render"
	ErrTypeInvalidBounds = "invalid_render_bounds"
	ErrTypeRead          = "render_read_failed"
	ErrTypeWrite         = "render_write_failed"
)

// PointSource provides the points to render.
type PointSource interface {
	Points() ([]models.Point, error)
}

// Image returns an image with a white pixel for every point on a black
// background. The image covers the bounding box of the points plus Border
// pixels on each side. Rows grow with y.
func Image(points []models.Point) (*image.NRGBA, error) {
	if len(points) == 0 {
		return nil, errors.New("no points to render").
			WithType(ErrTypeNoPoints)
	}

	top, right := math.Inf(1), math.Inf(-1)
	bottom, left := math.Inf(-1), math.Inf(1)
	for _, p := range points {
		top = math.Min(top, p.Y)
		right = math.Max(right, p.X)
		bottom = math.Max(bottom, p.Y)
		left = math.Min(left, p.X)
	}

	width := math.Ceil(right - left + Border*2 + 1)
	height := math.Ceil(bottom - top + Border*2 + 1)
	if math.IsNaN(width) || math.IsInf(width, 0) || math.IsNaN(height) || math.IsInf(height, 0) {
		return nil, errors.New("points have no finite bounding box").
			WithType(ErrTypeInvalidBounds).
			WithTag("left", left).
			WithTag("top", top).
			WithTag("right", right).
			WithTag("bottom", bottom)
	}
	if width > MaxPixels || height > MaxPixels || width*height > MaxPixels {
		return nil, errors.New("image is too large").
			WithType(ErrTypeInvalidBounds).
			WithTag("width", width).
			WithTag("height", height).
			WithTag("max_pixels", MaxPixels)
	}
	left -= Border
	top -= Border

	img := image.NewNRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for _, p := range points {
		img.SetNRGBA(int(p.X-left), int(p.Y-top), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return img, nil
}

// Render encodes the image of points as PNG into w.
func Render(points []models.Point, w io.Writer) error {
	img, err := Image(points)
	if err != nil {
		return err
	}

	if err := png.Encode(w, img); err != nil {
		return errors.New("encoding png failed").
			WithType(ErrTypeWrite).
			Wrap(err)
	}
	return nil
}

// RenderFile renders the points of src into a PNG file at path.
func RenderFile(src PointSource, path string) error {
	points, err := src.Points()
	if err != nil {
		return errors.New("reading points failed").
			WithType(ErrTypeRead).
			Wrap(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.New("creating image file failed").
			WithType(ErrTypeWrite).
			WithTag("path", path).
			Wrap(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := Render(points, w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errors.New("writing image file failed").
			WithType(ErrTypeWrite).
			WithTag("path", path).
			Wrap(err)
	}
	if err := f.Close(); err != nil {
		return errors.New("closing image file failed").
			WithType(ErrTypeWrite).
			WithTag("path", path).
			Wrap(err)
	}

	logs.WithTag("path", path).
		WithTag("points", len(points)).
		Info("flake rendered")
	return nil
}
