package main

import (
	"flag"
	"fmt"
	"image"
	"os"

	"gonum.org/v1/gonum/stat"

	"mask-light-renderer/internal/material"
	"mask-light-renderer/internal/postprocess"
	"mask-light-renderer/internal/scene"
	"mask-light-renderer/internal/texture"
)

func main() {
	sceneName := flag.String("scene", "", "Built-in mask to inspect")
	width := flag.Int("width", 512, "Scene width")
	height := flag.Int("height", 0, "Scene height (default: width)")
	radius := flag.Int("blur", 2, "Blur radius used for normals")
	blurMask := flag.String("blur-mask", "", "Pre-blurred mask instead of -blur")
	flag.Parse()

	var src *image.NRGBA
	var err error
	switch {
	case *sceneName != "":
		h := *height
		if h <= 0 {
			h = *width
		}
		src, err = scene.Render(*sceneName, *width, h)
	case flag.NArg() == 1:
		src, err = texture.LoadImage(flag.Arg(0))
	default:
		fmt.Fprintln(os.Stderr, "usage: inspect [-blur N] [-blur-mask file] <mask> | -scene name")
		os.Exit(2)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	edge := postprocess.Threshold(postprocess.Flatten(src), postprocess.DefaultLevel)
	blur := postprocess.Blur(edge, *radius)
	if *blurMask != "" {
		img, err := texture.LoadImage(*blurMask)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		blur = postprocess.Fit(img, w, h)
	}

	s, err := material.NewSampler(w, h, edge.Pix, blur.Pix)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	values := make([]float64, 0, w*h)
	blurValues := make([]float64, 0, w*h)
	boundary, undefined := 0, 0
	var firstUndefined []image.Point
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			v := s.MaterialValue(col, row)
			values = append(values, v)
			blurValues = append(blurValues, s.BlurValue(col, row))
			if !isBoundary(s, col, row) {
				continue
			}
			boundary++
			if _, ok := s.NormalAt(col, row); !ok {
				undefined++
				if len(firstUndefined) < 10 {
					firstUndefined = append(firstUndefined, image.Pt(col, row))
				}
			}
		}
	}

	mean, variance := stat.MeanVariance(values, nil)
	bMean, bStd := stat.MeanStdDev(blurValues, nil)
	fmt.Printf("Size: %dx%d\n", w, h)
	fmt.Printf("Inside fraction: %.4f\n", postprocess.InsideFraction(edge))
	fmt.Printf("Material: mean %.4f, variance %.4f\n", mean, variance)
	fmt.Printf("Blur: mean %.4f, stddev %.4f\n", bMean, bStd)
	fmt.Printf("Boundary pixels: %d\n", boundary)
	fmt.Printf("Undefined normals: %d", undefined)
	if boundary > 0 {
		fmt.Printf(" (%.2f%%)", 100*float64(undefined)/float64(boundary))
	}
	fmt.Println()
	for _, p := range firstUndefined {
		fmt.Printf("  at (%d,%d)\n", p.X, p.Y)
	}
}

// isBoundary reports whether the pixel differs in material from one of its
// four neighbours.
func isBoundary(s *material.Sampler, col, row int) bool {
	in := material.Inside(s.MaterialValue(col, row))
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		c, r := col+d[0], row+d[1]
		if c < 0 || c >= s.Width() || r < 0 || r >= s.Height() {
			continue
		}
		if material.Inside(s.MaterialValue(c, r)) != in {
			return true
		}
	}
	return false
}
