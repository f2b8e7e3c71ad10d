// Package render draws a word cloud PNG from token counts.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrEmpty is returned when no word is left to draw.
var ErrEmpty = errors.New("no words to render")

const (
	DefaultMaxWords    = 200
	DefaultMinFontSize = 4
	// Share of words drawn horizontally.
	preferHorizontal = 0.9
	relativeScaling  = 0.5
	shrinkFactor     = 0.9
	spiralStep       = 0.35
)

// viridis sampled at ten points.
var defaultPalette = []color.Color{
	color.RGBA{0x48, 0x1a, 0x6c, 0xff},
	color.RGBA{0x47, 0x2f, 0x7d, 0xff},
	color.RGBA{0x41, 0x44, 0x87, 0xff},
	color.RGBA{0x39, 0x56, 0x8c, 0xff},
	color.RGBA{0x31, 0x68, 0x8e, 0xff},
	color.RGBA{0x2a, 0x78, 0x8e, 0xff},
	color.RGBA{0x21, 0x91, 0x8c, 0xff},
	color.RGBA{0x2f, 0xb4, 0x7c, 0xff},
	color.RGBA{0x6e, 0xce, 0x58, 0xff},
	color.RGBA{0xb5, 0xde, 0x2b, 0xff},
}

// Excluder reports words the renderer must never draw.
type Excluder interface {
	Contains(word string) bool
}

type Options struct {
	Width, Height int
	MaxWords      int
	MinFontSize   float64
	// MaxFontSize defaults to Height / 2.
	MaxFontSize float64
	Stopwords   Excluder
	Background  color.Color
	Palette     []color.Color
	Seed        uint64
}

type Placement struct {
	Word     string
	Count    int
	FontSize float64
	// X, Y is the top-left corner of the word's box.
	X, Y, W, H float64
	Vertical   bool
	Color      color.Color
}

type Renderer struct {
	opts  Options
	font  *truetype.Font
	faces map[float64]font.Face
}

func New(opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", opts.Width, opts.Height)
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultMaxWords
	}
	if opts.MinFontSize <= 0 {
		opts.MinFontSize = DefaultMinFontSize
	}
	if opts.MaxFontSize <= 0 {
		opts.MaxFontSize = float64(opts.Height) / 2
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}
	if len(opts.Palette) == 0 {
		opts.Palette = defaultPalette
	}

	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Renderer{opts: opts, font: f, faces: make(map[float64]font.Face)}, nil
}

func (r *Renderer) face(size float64) font.Face {
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(r.font, &truetype.Options{Size: size})
	r.faces[size] = f
	return f
}

type weighted struct {
	word  string
	count int
}

// words drops stopwords and non-positive counts and returns the rest by
// descending count, then ascending word, capped at MaxWords.
func (r *Renderer) words(freqs map[string]int) []weighted {
	out := make([]weighted, 0, len(freqs))
	for w, n := range freqs {
		if n <= 0 || w == "" {
			continue
		}
		if r.opts.Stopwords != nil && r.opts.Stopwords.Contains(w) {
			continue
		}
		out = append(out, weighted{w, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].word < out[j].word
	})
	if len(out) > r.opts.MaxWords {
		out = out[:r.opts.MaxWords]
	}
	return out
}

// Layout positions as many words as fit on the canvas. Output is
// deterministic for a given Seed.
func (r *Renderer) Layout(freqs map[string]int) ([]Placement, error) {
	words := r.words(freqs)
	if len(words) == 0 {
		return nil, ErrEmpty
	}

	rng := rand.New(rand.NewPCG(r.opts.Seed, r.opts.Seed^0x9e3779b97f4a7c15))
	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	width, height := float64(r.opts.Width), float64(r.opts.Height)

	var placed []Placement
	maxCount := float64(words[0].count)
	lastSize := r.opts.MaxFontSize

	for _, w := range words {
		rel := float64(w.count) / maxCount
		size := math.Min(lastSize, r.opts.MaxFontSize*(relativeScaling*rel+(1-relativeScaling)))
		vertical := rng.Float64() >= preferHorizontal
		startAngle := rng.Float64() * 2 * math.Pi

		for size >= r.opts.MinFontSize {
			size = math.Round(size)
			dc.SetFontFace(r.face(size))
			bw, bh := dc.MeasureString(w.word)
			if vertical {
				bw, bh = bh, bw
			}
			if x, y, ok := findSpot(placed, bw, bh, width, height, startAngle); ok {
				placed = append(placed, Placement{
					Word:     w.word,
					Count:    w.count,
					FontSize: size,
					X:        x, Y: y, W: bw, H: bh,
					Vertical: vertical,
					Color:    r.opts.Palette[rng.IntN(len(r.opts.Palette))],
				})
				lastSize = size
				break
			}
			size *= shrinkFactor
		}
	}

	if len(placed) == 0 {
		return nil, ErrEmpty
	}
	return placed, nil
}

// findSpot walks an elliptical spiral out from the canvas center and returns
// the first top-left corner where a bw x bh box fits without overlap.
func findSpot(placed []Placement, bw, bh, width, height, startAngle float64) (float64, float64, bool) {
	if bw > width || bh > height {
		return 0, 0, false
	}
	cx, cy := width/2, height/2
	aspect := height / width
	maxRadius := math.Hypot(width, height) / 2

	for t := 0.0; ; t += spiralStep {
		radius := t * 2
		if radius > maxRadius {
			return 0, 0, false
		}
		theta := startAngle + t
		x := cx + radius*math.Cos(theta) - bw/2
		y := cy + radius*aspect*math.Sin(theta) - bh/2
		if x < 0 || y < 0 || x+bw > width || y+bh > height {
			continue
		}
		if !overlaps(placed, x, y, bw, bh) {
			return x, y, true
		}
	}
}

func overlaps(placed []Placement, x, y, w, h float64) bool {
	for _, p := range placed {
		if x < p.X+p.W && p.X < x+w && y < p.Y+p.H && p.Y < y+h {
			return true
		}
	}
	return false
}

// Render lays out and draws the cloud.
func (r *Renderer) Render(freqs map[string]int) (image.Image, []Placement, error) {
	placed, err := r.Layout(freqs)
	if err != nil {
		return nil, nil, err
	}

	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	dc.SetColor(r.opts.Background)
	dc.Clear()

	for _, p := range placed {
		dc.SetFontFace(r.face(p.FontSize))
		dc.SetColor(p.Color)
		cx, cy := p.X+p.W/2, p.Y+p.H/2
		if p.Vertical {
			dc.Push()
			dc.RotateAbout(gg.Radians(-90), cx, cy)
			dc.DrawStringAnchored(p.Word, cx, cy, 0.5, 0.5)
			dc.Pop()
			continue
		}
		dc.DrawStringAnchored(p.Word, cx, cy, 0.5, 0.5)
	}
	return dc.Image(), placed, nil
}

func (r *Renderer) WritePNG(w io.Writer, freqs map[string]int) error {
	img, _, err := r.Render(freqs)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}

// SavePNG renders to path, creating parent directories. Nothing is written
// when the cloud would be empty.
func (r *Renderer) SavePNG(path string, freqs map[string]int) error {
	img, _, err := r.Render(freqs)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create image directory: %w", err)
		}
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}
