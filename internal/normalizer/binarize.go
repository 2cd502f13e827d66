package normalizer

import (
	"image"
	"sort"
)

// medianFilter applies a 3x3 median filter, knocking out salt-and-pepper
// scan noise without softening bubble outlines the way a Gaussian would.
func medianFilter(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)
	copy(out.Pix, gray.Pix)

	window := make([]uint8, 0, 9)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window = append(window, gray.GrayAt(x+dx, y+dy).Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.Pix[y*out.Stride+x] = window[4]
		}
	}
	return out
}

// adaptiveThreshold binarizes against a local mean computed over a
// window x window neighborhood via an integral image, so marks stay
// separable under uneven scan brightness. Output: 0 = dark (ink),
// 255 = background.
func adaptiveThreshold(gray *image.Gray, window int, bias float64) *image.Gray {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)

	if width == 0 || height == 0 {
		return out
	}
	if window < 3 {
		window = 3
	}
	half := window / 2

	// Integral image with a zero row/column of padding.
	integral := make([]uint64, (width+1)*(height+1))
	stride := width + 1
	for y := 0; y < height; y++ {
		var rowSum uint64
		for x := 0; x < width; x++ {
			rowSum += uint64(gray.GrayAt(x, y).Y)
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	for y := 0; y < height; y++ {
		y0 := max(0, y-half)
		y1 := min(height-1, y+half)
		for x := 0; x < width; x++ {
			x0 := max(0, x-half)
			x1 := min(width-1, x+half)

			count := uint64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := integral[(y1+1)*stride+x1+1] -
				integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] +
				integral[y0*stride+x0]
			localMean := float64(sum) / float64(count)

			if float64(gray.GrayAt(x, y).Y) < localMean-bias {
				out.Pix[y*out.Stride+x] = 0
			} else {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
