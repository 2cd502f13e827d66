package normalizer

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// darkDelta is how far below the global mean brightness a pixel must fall
// to count as ink when sampling points for the skew search.
const darkDelta = 30

const (
	coarseStepDegrees = 0.5
	fineStepDegrees   = 0.1
	// minSkewSamples guards the search against near-blank images where a
	// handful of specks would steer the estimate.
	minSkewSamples = 50
)

// estimateSkew finds the rotation that makes bubble rows horizontal using
// a projection-profile search: ink pixels are projected onto the vertical
// axis under candidate rotations, and the candidate whose row histogram is
// sharpest wins. The returned angle is the counter-clockwise correction to
// feed to the rotation step.
func (n *Normalizer) estimateSkew(gray *image.Gray) float64 {
	if n.cfg.MaxSkewDegrees <= 0 {
		return 0
	}
	xs, ys := sampleInkPoints(gray)
	if len(xs) < minSkewSamples {
		return 0
	}

	bounds := gray.Bounds()
	reach := int(math.Hypot(float64(bounds.Dx()), float64(bounds.Dy()))) + 2

	coarse := bestProjectionAngle(xs, ys, reach, -n.cfg.MaxSkewDegrees, n.cfg.MaxSkewDegrees, coarseStepDegrees)
	return bestProjectionAngle(xs, ys, reach, coarse-coarseStepDegrees, coarse+coarseStepDegrees, fineStepDegrees)
}

// sampleInkPoints collects every other pixel darker than the global mean
// by darkDelta, enough to carry the row structure without walking the
// whole raster.
func sampleInkPoints(gray *image.Gray) ([]float64, []float64) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var total float64
	samples := 0
	for y := 0; y < height; y += 2 {
		row := y * gray.Stride
		for x := 0; x < width; x += 2 {
			total += float64(gray.Pix[row+x])
			samples++
		}
	}
	if samples == 0 {
		return nil, nil
	}
	cutoff := total/float64(samples) - darkDelta

	var xs, ys []float64
	for y := 0; y < height; y += 2 {
		row := y * gray.Stride
		for x := 0; x < width; x += 2 {
			if float64(gray.Pix[row+x]) < cutoff {
				xs = append(xs, float64(x))
				ys = append(ys, float64(y))
			}
		}
	}
	return xs, ys
}

// bestProjectionAngle sweeps [lo, hi] in the given step and returns the
// candidate whose projected row histogram has the highest variance. A
// correctly deskewed sheet piles its ink into a few dense rows; any
// residual rotation smears those rows and flattens the histogram.
func bestProjectionAngle(xs, ys []float64, reach int, lo, hi, step float64) float64 {
	profile := make([]float64, 2*reach+1)
	bestAngle := lo
	bestScore := math.Inf(-1)
	for angle := lo; angle <= hi+step/2; angle += step {
		score := projectionVariance(xs, ys, angle, profile, reach)
		if score > bestScore {
			bestScore = score
			bestAngle = angle
		}
	}
	return bestAngle
}

// projectionVariance bins every ink point by the row it would land in
// after a counter-clockwise rotation by angle, reusing profile as
// scratch space.
func projectionVariance(xs, ys []float64, angle float64, profile []float64, offset int) float64 {
	for i := range profile {
		profile[i] = 0
	}
	rad := angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	for i := range xs {
		bin := int(math.Round(ys[i]*cos-xs[i]*sin)) + offset
		if bin >= 0 && bin < len(profile) {
			profile[bin]++
		}
	}
	return stat.Variance(profile, nil)
}
