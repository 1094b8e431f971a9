package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"

	"mask-light-renderer/internal/postprocess"
	"mask-light-renderer/internal/scene"
)

func main() {
	width := flag.Int("width", 512, "Mask width")
	height := flag.Int("height", 0, "Mask height (default: width)")
	radius := flag.Int("blur", 0, "Also write <name>_blur with this blur radius")
	list := flag.Bool("list", false, "List built-in scenes and exit")
	flag.Parse()

	if *list {
		for _, n := range scene.Names() {
			fmt.Println(n)
		}
		return
	}
	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: maskgen [-width W] [-height H] [-blur R] <scene> <out.png|out.webp>")
		os.Exit(2)
	}
	name, out := flag.Arg(0), flag.Arg(1)
	h := *height
	if h <= 0 {
		h = *width
	}

	img, err := scene.Render(name, *width, h)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	edge := postprocess.Threshold(img, postprocess.DefaultLevel)
	if err := save(out, edge); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%dx%d, inside %.1f%%)\n", out, *width, h, 100*postprocess.InsideFraction(edge))

	if *radius > 0 {
		ext := filepath.Ext(out)
		blurPath := strings.TrimSuffix(out, ext) + "_blur" + ext
		if err := save(blurPath, postprocess.Blur(edge, *radius)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (radius %d)\n", blurPath, *radius)
	}
}

func save(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webp":
		err = nativewebp.Encode(f, img, nil)
	case ".png":
		err = png.Encode(f, img)
	default:
		err = fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
