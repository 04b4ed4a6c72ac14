// Package wordcloud renders ranked words into a PNG word cloud.
//
// Layout is deterministic: words are placed largest first along an
// Archimedean spiral from the image center, shrinking a word until it fits
// or falls under the minimum font size.
package wordcloud

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/xhad/docsift/internal/models"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrNoWords is returned when there is nothing to draw.
var ErrNoWords = errors.New("no words to render")

const (
	padding     = 2
	spiralStep  = 0.1
	spiralScale = 1.5
	shrinkRatio = 0.9
)

// Pastel1, light colors that read well on the black background.
var defaultPalette = []color.Color{
	color.RGBA{0xfb, 0xb4, 0xae, 0xff},
	color.RGBA{0xb3, 0xcd, 0xe3, 0xff},
	color.RGBA{0xcc, 0xeb, 0xc5, 0xff},
	color.RGBA{0xde, 0xcb, 0xe4, 0xff},
	color.RGBA{0xfe, 0xd9, 0xa6, 0xff},
	color.RGBA{0xff, 0xff, 0xcc, 0xff},
	color.RGBA{0xe5, 0xd8, 0xbd, 0xff},
	color.RGBA{0xfd, 0xda, 0xec, 0xff},
	color.RGBA{0xf2, 0xf2, 0xf2, 0xff},
}

type RendererConfig struct {
	Width           int
	Height          int
	MaxWords        int
	MinFontSize     float64
	MaxFontSize     float64
	RelativeScaling float64
	Background      color.Color
	Palette         []color.Color
}

type Renderer struct {
	config RendererConfig
	font   *opentype.Font
}

func NewWithConfig(config RendererConfig) (*Renderer, error) {
	if config.Width <= 0 {
		config.Width = 800
	}
	if config.Height <= 0 {
		config.Height = 400
	}
	if config.MaxWords <= 0 {
		config.MaxWords = 100
	}
	if config.MinFontSize <= 0 {
		config.MinFontSize = 10
	}
	if config.MaxFontSize <= 0 {
		config.MaxFontSize = float64(config.Height) * 0.3
	}
	if config.RelativeScaling < 0 || config.RelativeScaling > 1 {
		return nil, fmt.Errorf("relative scaling must be between 0 and 1")
	}
	if config.Background == nil {
		config.Background = color.Black
	}
	if len(config.Palette) == 0 {
		config.Palette = defaultPalette
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	return &Renderer{config: config, font: f}, nil
}

// Render draws words, most frequent first, and returns PNG bytes.
func (r *Renderer) Render(ctx context.Context, words []models.WordCount) ([]byte, error) {
	if len(words) > r.config.MaxWords {
		words = words[:r.config.MaxWords]
	}
	if len(words) == 0 || words[0].Count <= 0 {
		return nil, ErrNoWords
	}

	img := image.NewRGBA(image.Rect(0, 0, r.config.Width, r.config.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.config.Background), image.Point{}, draw.Src)

	var placed []image.Rectangle
	size := r.config.MaxFontSize
	lastCount := float64(words[0].Count)

	for i, w := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if w.Count <= 0 {
			break
		}

		rs := r.config.RelativeScaling
		if rs != 0 {
			size = math.Round((rs*(float64(w.Count)/lastCount) + (1 - rs)) * size)
		}
		lastCount = float64(w.Count)

		fitted, ok, err := r.place(img, w.Word, size, r.config.Palette[i%len(r.config.Palette)], placed)
		if err != nil {
			return nil, err
		}
		if !ok {
			// nothing smaller fits either
			break
		}
		placed = append(placed, fitted.rect)
		size = fitted.size
	}

	if len(placed) == 0 {
		return nil, ErrNoWords
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type placement struct {
	rect image.Rectangle
	size float64
}

// place shrinks word until a free spot exists, then draws it there.
func (r *Renderer) place(img *image.RGBA, word string, size float64, c color.Color, placed []image.Rectangle) (placement, bool, error) {
	for ; size >= r.config.MinFontSize; size = math.Floor(size * shrinkRatio) {
		p, ok, err := r.tryDraw(img, word, size, c, placed)
		if err != nil || ok {
			return p, ok, err
		}
	}
	return placement{}, false, nil
}

func (r *Renderer) tryDraw(img *image.RGBA, word string, size float64, c color.Color, placed []image.Rectangle) (placement, bool, error) {
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return placement{}, false, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	width := font.MeasureString(face, word).Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	origin, ok := r.findSpot(width, height, placed)
	if !ok {
		return placement{}, false, nil
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(origin.X, origin.Y+metrics.Ascent.Ceil()),
	}
	d.DrawString(word)

	rect := image.Rect(origin.X, origin.Y, origin.X+width, origin.Y+height)
	return placement{rect: rect.Inset(-padding), size: size}, true, nil
}

// findSpot walks a spiral out from the center and returns the top-left
// corner of the first free box of the given size.
func (r *Renderer) findSpot(width, height int, placed []image.Rectangle) (image.Point, bool) {
	bounds := image.Rect(0, 0, r.config.Width, r.config.Height)
	if width > bounds.Dx() || height > bounds.Dy() {
		return image.Point{}, false
	}

	cx := float64(r.config.Width-width) / 2
	cy := float64(r.config.Height-height) / 2
	aspect := float64(r.config.Width) / float64(r.config.Height)
	maxRadius := math.Hypot(float64(r.config.Width), float64(r.config.Height)) / 2

	for theta := 0.0; spiralScale*theta <= maxRadius; theta += spiralStep {
		radius := spiralScale * theta
		x := int(math.Round(cx + radius*math.Cos(theta)*aspect))
		y := int(math.Round(cy + radius*math.Sin(theta)))

		box := image.Rect(x, y, x+width, y+height)
		if !box.In(bounds) || overlapsAny(box, placed) {
			continue
		}
		return box.Min, true
	}
	return image.Point{}, false
}

func overlapsAny(box image.Rectangle, placed []image.Rectangle) bool {
	for _, p := range placed {
		if box.Overlaps(p) {
			return true
		}
	}
	return false
}

// DataURI embeds PNG bytes in a data URI.
func DataURI(pngBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}
