// Package fusion merges a bracket of exposures into one image by
// exposure fusion: each pixel of the output is a normalized weighted
// blend of the sources, with weights favouring well-exposed,
// well-contrasted, saturated regions. There is no tone-mapping curve.
package fusion

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// weight-map tuning
const (
	exposednessSigma = 0.2
	weightEpsilon    = 1e-6
	smoothRadius     = 6
)

// Fuse blends the sources into one image. All sources must share the
// same bounds; the caller validates counts and decodability.
func Fuse(sources []image.Image) (image.Image, error) {
	if len(sources) < 2 {
		return nil, fmt.Errorf("fusion needs at least 2 sources, got %d", len(sources))
	}
	bounds := sources[0].Bounds()
	for i, src := range sources[1:] {
		if src.Bounds() != bounds {
			return nil, fmt.Errorf("source %d bounds %v differ from %v", i+1, src.Bounds(), bounds)
		}
	}

	w, h := bounds.Dx(), bounds.Dy()

	// Per-source channel planes and weight maps.
	type planes struct {
		r, g, b []float64
		weight  []float64
	}
	all := make([]planes, len(sources))

	for i, src := range sources {
		p := planes{
			r:      make([]float64, w*h),
			g:      make([]float64, w*h),
			b:      make([]float64, w*h),
			weight: make([]float64, w*h),
		}
		lum := make([]float64, w*h)

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				rr, gg, bb, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				idx := y*w + x
				p.r[idx] = float64(rr) / 65535.0
				p.g[idx] = float64(gg) / 65535.0
				p.b[idx] = float64(bb) / 65535.0
				lum[idx] = 0.299*p.r[idx] + 0.587*p.g[idx] + 0.114*p.b[idx]
			}
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				idx := y*w + x
				we := wellExposedness(lum[idx])
				sat := saturation(p.r[idx], p.g[idx], p.b[idx])
				con := contrast(lum, w, h, x, y)
				p.weight[idx] = we*sat*con + weightEpsilon
			}
		}

		// Smooth the weight map so blend seams don't follow pixel noise.
		p.weight = boxBlur(p.weight, w, h, smoothRadius)
		all[i] = p
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			var sumW, r, g, b float64
			for i := range all {
				sumW += all[i].weight[idx]
			}
			for i := range all {
				frac := all[i].weight[idx] / sumW
				r += all[i].r[idx] * frac
				g += all[i].g[idx] * frac
				b += all[i].b[idx] * frac
			}
			out.SetRGBA(x, y, color.RGBA{
				R: clamp8(r),
				G: clamp8(g),
				B: clamp8(b),
				A: 255,
			})
		}
	}
	return out, nil
}

// wellExposedness peaks at mid-grey and falls off toward clipped black
// or white.
func wellExposedness(lum float64) float64 {
	d := lum - 0.5
	return math.Exp(-(d * d) / (2 * exposednessSigma * exposednessSigma))
}

// saturation is the standard deviation across the colour channels.
func saturation(r, g, b float64) float64 {
	mean := (r + g + b) / 3
	return math.Sqrt(((r-mean)*(r-mean) + (g-mean)*(g-mean) + (b-mean)*(b-mean)) / 3)
}

// contrast is the absolute Laplacian response on luminance.
func contrast(lum []float64, w, h, x, y int) float64 {
	idx := y*w + x
	c := lum[idx]
	var sum float64
	n := 0
	if x > 0 {
		sum += lum[idx-1]
		n++
	}
	if x < w-1 {
		sum += lum[idx+1]
		n++
	}
	if y > 0 {
		sum += lum[idx-w]
		n++
	}
	if y < h-1 {
		sum += lum[idx+w]
		n++
	}
	return math.Abs(float64(n)*c-sum) + 0.01
}

// boxBlur runs a separable box filter over the plane.
func boxBlur(src []float64, w, h, radius int) []float64 {
	if radius <= 0 {
		return src
	}
	tmp := make([]float64, len(src))
	dst := make([]float64, len(src))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			n := 0
			for dx := -radius; dx <= radius; dx++ {
				xx := x + dx
				if xx >= 0 && xx < w {
					sum += src[y*w+xx]
					n++
				}
			}
			tmp[y*w+x] = sum / float64(n)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			n := 0
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy >= 0 && yy < h {
					sum += tmp[yy*w+x]
					n++
				}
			}
			dst[y*w+x] = sum / float64(n)
		}
	}
	return dst
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// exposureScore rates how usable a single source is on its own; the
// fallback path keeps the highest-scoring source when fusion gives up.
func exposureScore(img image.Image) float64 {
	bounds := img.Bounds()
	var sum float64
	var n int
	// Sample a grid rather than every pixel; scoring is a tie-break,
	// not photometry.
	stepX := max(1, bounds.Dx()/64)
	stepY := max(1, bounds.Dy()/64)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			sum += wellExposedness(lum)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
