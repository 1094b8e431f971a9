// Package scene draws the built-in procedural masks. Shapes are white on
// black and anti-aliased; callers threshold and blur the result into the
// edge and blur buffers.
package scene

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/gogpu/gg"

	"mask-light-renderer/internal/texture"
)

var ErrUnknownScene = errors.New("scene: unknown scene")

type drawFunc func(dc *gg.Context, w, h float64)

var scenes = map[string]drawFunc{
	"circle":   drawCircle,
	"lens":     drawLens,
	"prism":    drawPrism,
	"slab":     drawSlab,
	"droplets": drawDroplets,
}

// Names returns the built-in scene names in sorted order.
func Names() []string {
	names := make([]string, 0, len(scenes))
	for name := range scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is a built-in scene.
func Has(name string) bool {
	_, ok := scenes[name]
	return ok
}

// Render draws scene name at width×height.
func Render(name string, width, height int) (*image.NRGBA, error) {
	draw, ok := scenes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownScene, name, Names())
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("scene: render %s: bad size %dx%d", name, width, height)
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.Black)
	dc.SetRGB(1, 1, 1)

	draw(dc, float64(width), float64(height))
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("scene: render %s: %w", name, err)
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("scene: flush %s: %w", name, err)
	}
	return texture.ToNRGBA(dc.Image()), nil
}

func drawCircle(dc *gg.Context, w, h float64) {
	dc.DrawCircle(w/2, h/2, 0.3*min(w, h))
}

// drawLens traces a biconvex lens with its axis along x: two circular arcs
// meeting at the top and bottom tips.
func drawLens(dc *gg.Context, w, h float64) {
	cx, cy := w/2, h/2
	halfH := 0.35 * min(w, h)
	halfW := 0.3 * halfH
	r := (halfW*halfW + halfH*halfH) / (2 * halfW)

	const n = 64
	for i := 0; i <= n; i++ {
		y := -halfH + 2*halfH*float64(i)/n
		x := math.Sqrt(max(r*r-y*y, 0)) - (r - halfW)
		if i == 0 {
			dc.MoveTo(cx+x, cy+y)
		} else {
			dc.LineTo(cx+x, cy+y)
		}
	}
	for i := n; i >= 0; i-- {
		y := -halfH + 2*halfH*float64(i)/n
		x := math.Sqrt(max(r*r-y*y, 0)) - (r - halfW)
		dc.LineTo(cx-x, cy+y)
	}
	dc.ClosePath()
}

func drawPrism(dc *gg.Context, w, h float64) {
	dc.DrawRegularPolygon(3, w/2, h/2, 0.35*min(w, h), -math.Pi/2)
}

func drawSlab(dc *gg.Context, w, h float64) {
	s := min(w, h)
	dc.Push()
	dc.RotateAbout(0.35, w/2, h/2)
	dc.DrawRectangle(w/2-0.35*s, h/2-0.08*s, 0.7*s, 0.16*s)
	dc.Pop()
}

// Droplet centers and radii as fractions of the shorter side.
var droplets = [][3]float64{
	{0.30, 0.35, 0.10},
	{0.62, 0.28, 0.07},
	{0.50, 0.60, 0.14},
	{0.78, 0.70, 0.08},
	{0.25, 0.75, 0.06},
}

func drawDroplets(dc *gg.Context, w, h float64) {
	s := min(w, h)
	for _, d := range droplets {
		dc.DrawCircle(d[0]*w, d[1]*h, d[2]*s)
	}
}
