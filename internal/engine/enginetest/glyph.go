package enginetest

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"github.com/MeKo-Tech/roiscan/internal/frame"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cellW      = 7
	cellH      = 13
	cellAscent = 11
	inkLevel   = 128
)

// glyph is a binarized cell; true marks ink.
type glyph [cellW * cellH]bool

var (
	templatesOnce sync.Once
	templates     map[rune]glyph
)

// loadTemplates renders every printable ASCII rune with basicfont.Face7x13.
func loadTemplates() map[rune]glyph {
	templatesOnce.Do(func() {
		templates = make(map[rune]glyph, 95)
		for r := rune(32); r < 127; r++ {
			img := image.NewGray(image.Rect(0, 0, cellW, cellH))
			draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
			d := font.Drawer{
				Dst:  img,
				Src:  image.Black,
				Face: basicfont.Face7x13,
				Dot:  fixed.P(0, cellAscent),
			}
			d.DrawString(string(r))
			var g glyph
			for i, v := range img.Pix {
				g[i] = v < inkLevel
			}
			templates[r] = g
		}
	})
	return templates
}

// GlyphBackend recognizes a single line of text rendered with
// basicfont.Face7x13 at its native size by template matching. It honours the
// character whitelist variable and returns whitespace for blank images.
type GlyphBackend struct {
	mu        sync.Mutex
	ready     bool
	whitelist string
	ink       [][]bool
	w, h      int
}

// NewGlyphBackend returns an uninitialized glyph backend.
func NewGlyphBackend() *GlyphBackend { return &GlyphBackend{} }

func (b *GlyphBackend) Init(string, string) error {
	loadTemplates()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = true
	return nil
}

func (b *GlyphBackend) SetVariable(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if key == "tessedit_char_whitelist" {
		b.whitelist = value
	}
	return nil
}

func (b *GlyphBackend) SetImage(img *frame.Gray) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return errors.New("glyph backend not initialized")
	}
	return img.View(func(g *image.Gray) error {
		r := g.Bounds()
		b.w, b.h = r.Dx(), r.Dy()
		b.ink = make([][]bool, b.h)
		for y := range b.h {
			row := make([]bool, b.w)
			for x := range b.w {
				row[x] = g.GrayAt(r.Min.X+x, r.Min.Y+y).Y < inkLevel
			}
			b.ink[y] = row
		}
		return nil
	})
}

func (b *GlyphBackend) Text() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return "", errors.New("glyph backend not initialized")
	}
	if b.ink == nil {
		return "", errors.New("no image set")
	}
	defer func() { b.ink = nil }()

	minX, minY, maxX, ok := b.inkBounds()
	if !ok {
		return "", nil
	}

	cands := b.candidates()
	best, bestCost := "", math.MaxInt
	for oy := minY - (cellH - 1); oy <= minY; oy++ {
		for ox := minX - (cellW - 1); ox <= minX; ox++ {
			text, cost := b.readLine(ox, oy, maxX, cands)
			cost += b.inkOutside(oy)
			if cost < bestCost {
				best, bestCost = text, cost
			}
		}
	}
	return strings.TrimSpace(best), nil
}

func (b *GlyphBackend) End() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = false
	b.ink = nil
	return nil
}

func (b *GlyphBackend) inkBounds() (minX, minY, maxX int, ok bool) {
	minX, minY, maxX = b.w, b.h, -1
	for y, row := range b.ink {
		for x, v := range row {
			if !v {
				continue
			}
			ok = true
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
		}
	}
	return minX, minY, maxX, ok
}

// inkOutside counts ink pixels above or below the text band starting at oy.
func (b *GlyphBackend) inkOutside(oy int) int {
	n := 0
	for y, row := range b.ink {
		if y >= oy && y < oy+cellH {
			continue
		}
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return n
}

type candidate struct {
	r rune
	g glyph
}

// candidates returns the templates allowed by the whitelist in rune order,
// so ties resolve deterministically.
func (b *GlyphBackend) candidates() []candidate {
	all := loadTemplates()
	out := []candidate{{r: ' ', g: all[' ']}}
	for r := rune(33); r < 127; r++ {
		if b.whitelist != "" && !strings.ContainsRune(b.whitelist, r) {
			continue
		}
		out = append(out, candidate{r: r, g: all[r]})
	}
	return out
}

func (b *GlyphBackend) readLine(ox, oy, maxX int, cands []candidate) (string, int) {
	var sb strings.Builder
	total := 0
	for cx := ox; cx <= maxX; cx += cellW {
		bestR, bestD := ' ', math.MaxInt
		for _, c := range cands {
			if d := b.distance(cx, oy, &c.g, bestD); d < bestD {
				bestR, bestD = c.r, d
			}
		}
		sb.WriteRune(bestR)
		total += bestD
	}
	return sb.String(), total
}

// distance is the Hamming distance between the cell at (cx, cy) and g,
// abandoning the count once it reaches limit.
func (b *GlyphBackend) distance(cx, cy int, g *glyph, limit int) int {
	d := 0
	for y := range cellH {
		for x := range cellW {
			if b.at(cx+x, cy+y) != g[y*cellW+x] {
				d++
				if d >= limit {
					return d
				}
			}
		}
	}
	return d
}

func (b *GlyphBackend) at(x, y int) bool {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return false
	}
	return b.ink[y][x]
}
