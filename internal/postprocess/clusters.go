package postprocess

import "image"

// RemoveSmallClusters clears inside specks from a binary mask. Inside pixels
// (white) form 8-connected components; components smaller than minRatio of
// the total inside area are painted black. The input is not modified.
func RemoveSmallClusters(mask *image.NRGBA, minRatio float64) *image.NRGBA {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	result := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		si := mask.PixOffset(b.Min.X, b.Min.Y+y)
		copy(result.Pix[y*result.Stride:], mask.Pix[si:si+w*4])
	}

	// Find inside pixels
	inside := make([]bool, w*h)
	totalInside := 0
	for i := range inside {
		if result.Pix[i*4] >= DefaultLevel {
			inside[i] = true
			totalInside++
		}
	}
	if totalInside == 0 || minRatio <= 0 {
		return result
	}

	// 8-connected flood fill BFS
	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}
	var compSizes []int

	dx := [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy := [8]int{-1, -1, -1, 0, 0, 1, 1, 1}

	queue := make([]int, 0, 1024)
	for idx := range inside {
		if !inside[idx] || labels[idx] >= 0 {
			continue
		}
		compID := len(compSizes)

		queue = append(queue[:0], idx)
		labels[idx] = compID
		size := 0
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			size++

			cy, cx := curr/w, curr%w
			for d := 0; d < 8; d++ {
				nx, ny := cx+dx[d], cy+dy[d]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if inside[ni] && labels[ni] < 0 {
					labels[ni] = compID
					queue = append(queue, ni)
				}
			}
		}
		compSizes = append(compSizes, size)
	}

	if len(compSizes) <= 1 {
		return result
	}

	minSize := int(float64(totalInside) * minRatio)
	for idx, label := range labels {
		if label >= 0 && compSizes[label] < minSize {
			i := idx * 4
			result.Pix[i], result.Pix[i+1], result.Pix[i+2] = 0, 0, 0
		}
	}
	return result
}
