package monitor

import (
	"math"
	"strings"

	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/patch"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at sub-pixel (x, y). The canvas is Width*2 by
// Height*4 dots with y growing downwards.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// dot maps a coordinate in [lo, hi] onto n dots.
func dot(v, lo, hi float64, n int) int {
	d := int(math.Floor((v - lo) / (hi - lo) * float64(n)))
	return max(0, min(d, n-1))
}

// Plot draws every particle of w inside the domain of p.
func (c *Canvas) Plot(w *dw.DataWarehouse, p *patch.Patch) {
	nx, ny := 2*c.Width, 4*c.Height
	for _, dwi := range w.Indices() {
		ps, _ := w.Particles(dwi)
		for _, x := range ps.X {
			if !p.InPatch(x) {
				continue
			}
			c.Set(dot(x.X, p.X0.X, p.X1.X, nx), ny-1-dot(x.Y, p.X0.Y, p.X1.Y, ny))
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}
