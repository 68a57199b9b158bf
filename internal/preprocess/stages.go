package preprocess

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// gaussian3x3 is the kernel OpenCV derives for a 3x3 blur with sigma 0:
// the outer product of [1 2 1]/4 with itself.
var gaussian3x3 = [9]float64{
	1, 2, 1,
	2, 4, 2,
	1, 2, 1,
}

// Grayscale converts img to 8-bit luma using the BT.601 weights.
func Grayscale(img image.Image) *image.Gray {
	return toGray(imaging.Grayscale(img))
}

// GaussianBlur smooths src with the 3x3 Gaussian kernel. The image is
// first given a one pixel reflect-101 border so edge pixels are weighted
// like OpenCV's BORDER_DEFAULT.
func GaussianBlur(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return clone(src)
	}
	padded := image.NewGray(image.Rect(0, 0, w+2, h+2))
	for y := 0; y < h+2; y++ {
		row := src.Pix[reflect101(y-1, h)*src.Stride:]
		out := padded.Pix[y*padded.Stride : y*padded.Stride+w+2]
		for x := range out {
			out[x] = row[reflect101(x-1, w)]
		}
	}
	blurred := imaging.Convolve3x3(padded, gaussian3x3, &imaging.ConvolveOptions{Normalize: true})
	return toGray(imaging.Crop(blurred, image.Rect(1, 1, w+1, h+1)))
}

// EqualizeHist spreads the cumulative histogram of src over the full 0..255
// range. A single-valued image is left at that value.
func EqualizeHist(src *image.Gray) *image.Gray {
	hist := histogram(src)
	total := src.Rect.Dx() * src.Rect.Dy()
	if total == 0 {
		return clone(src)
	}

	first := 0
	for hist[first] == 0 {
		first++
	}

	var lut [256]uint8
	if hist[first] == total {
		for i := range lut {
			lut[i] = uint8(first)
		}
		return applyLUT(src, &lut)
	}

	scale := float32(255) / float32(total-hist[first])
	sum := 0
	for i := first + 1; i < 256; i++ {
		sum += hist[i]
		lut[i] = saturate(float64(float32(sum) * scale))
	}
	return applyLUT(src, &lut)
}

// CLAHE applies contrast limited adaptive histogram equalization over a
// tilesX x tilesY grid. Image sizes not divisible by the grid are extended
// with a reflect-101 border for the tile histograms, the way OpenCV does.
func CLAHE(src *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 || tilesX <= 0 || tilesY <= 0 {
		return clone(src)
	}

	extW, extH := w, h
	if w%tilesX != 0 || h%tilesY != 0 {
		extW = w + tilesX - w%tilesX
		extH = h + tilesY - h%tilesY
	}
	tileW, tileH := extW/tilesX, extH/tilesY
	tileArea := tileW * tileH

	clip := 0
	if clipLimit > 0 {
		clip = int(clipLimit * float64(tileArea) / 256)
		if clip < 1 {
			clip = 1
		}
	}

	// OpenCV does the LUT scaling and interpolation in single precision;
	// the explicit float32 conversions keep rounding ties identical.
	luts := make([][256]uint8, tilesX*tilesY)
	lutScale := float32(255) / float32(tileArea)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			var hist [256]int
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				row := src.Pix[reflect101(y, h)*src.Stride:]
				for x := tx * tileW; x < (tx+1)*tileW; x++ {
					hist[row[reflect101(x, w)]]++
				}
			}
			if clip > 0 {
				clipHistogram(&hist, clip)
			}
			lut := &luts[ty*tilesX+tx]
			sum := 0
			for i := range hist {
				sum += hist[i]
				lut[i] = saturate(float64(float32(sum) * lutScale))
			}
		}
	}

	type span struct {
		i1, i2 int
		a, a1  float32
	}
	interp := func(p, size, tiles int) span {
		inv := float32(1) / float32(size)
		f := float32(float32(p)*inv) - 0.5
		i1 := int(math.Floor(float64(f)))
		s := span{i1: i1, i2: i1 + 1, a: f - float32(i1)}
		s.a1 = 1 - s.a
		if s.i1 < 0 {
			s.i1 = 0
		}
		if s.i2 > tiles-1 {
			s.i2 = tiles - 1
		}
		return s
	}
	xs := make([]span, w)
	for x := range xs {
		xs[x] = interp(x, tileW, tilesX)
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		ys := interp(y, tileH, tilesY)
		top1, top2 := luts[ys.i1*tilesX:], luts[ys.i2*tilesX:]
		in := src.Pix[y*src.Stride : y*src.Stride+w]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, v := range in {
			s := xs[x]
			upper := float32(float32(top1[s.i1][v])*s.a1) + float32(float32(top1[s.i2][v])*s.a)
			lower := float32(float32(top2[s.i1][v])*s.a1) + float32(float32(top2[s.i2][v])*s.a)
			out[x] = saturate(float64(float32(upper*ys.a1) + float32(lower*ys.a)))
		}
	}
	return dst
}

// clipHistogram caps every bin at limit and redistributes the excess evenly,
// spreading the remainder over evenly spaced bins.
func clipHistogram(hist *[256]int, limit int) {
	excess := 0
	for i, v := range hist {
		if v > limit {
			excess += v - limit
			hist[i] = limit
		}
	}

	batch := excess / 256
	residual := excess - batch*256
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := 256 / residual
		if step < 1 {
			step = 1
		}
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}

// Gamma maps every pixel through 255*(v/255)^(1/gamma), truncating the
// result toward zero.
func Gamma(src *image.Gray, gamma float64) *image.Gray {
	var lut [256]uint8
	exp := 1 / gamma
	for i := range lut {
		lut[i] = uint8(255 * math.Pow(float64(i)/255, exp))
	}
	return applyLUT(src, &lut)
}

// Otsu returns the global threshold that maximizes the between-class
// variance of the histogram of src.
func Otsu(src *image.Gray) uint8 {
	hist := histogram(src)
	total := src.Rect.Dx() * src.Rect.Dy()
	if total == 0 {
		return 0
	}

	const eps = 1.1920929e-07
	scale := 1 / float64(total)
	mu := 0.0
	for i, v := range hist {
		mu += float64(i) * float64(v)
	}
	mu *= scale

	var mu1, q1, maxSigma float64
	best := 0
	for i, v := range hist {
		p := float64(v) * scale
		mu1 *= q1
		q1 += p
		q2 := 1 - q1
		if math.Min(q1, q2) < eps || math.Max(q1, q2) > 1-eps {
			continue
		}
		mu1 = (mu1 + float64(i)*p) / q1
		mu2 := (mu - q1*mu1) / q2
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > maxSigma {
			maxSigma = sigma
			best = i
		}
	}
	return uint8(best)
}

// Threshold sets pixels above t to 255 and the rest to 0.
func Threshold(src *image.Gray, t uint8) *image.Gray {
	var lut [256]uint8
	for i := int(t) + 1; i < 256; i++ {
		lut[i] = 255
	}
	return applyLUT(src, &lut)
}

// Invert complements every pixel.
func Invert(src *image.Gray) *image.Gray {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(255 - i)
	}
	return applyLUT(src, &lut)
}

// Open performs a morphological opening (erode, then dilate) with a k x k
// rectangular structuring element. k <= 1 leaves the image unchanged.
func Open(src *image.Gray, k int) *image.Gray {
	if k <= 1 {
		return clone(src)
	}
	return rankFilter(rankFilter(src, k, false), k, true)
}

// rankFilter replaces each pixel by the min (erode) or max (dilate) of its
// k x k neighbourhood. Pixels outside the image are ignored.
func rankFilter(src *image.Gray, k int, dilate bool) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	anchor := k / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255)
			if dilate {
				v = 0
			}
			for dy := -anchor; dy < k-anchor; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -anchor; dx < k-anchor; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					p := src.Pix[yy*src.Stride+xx]
					if dilate && p > v || !dilate && p < v {
						v = p
					}
				}
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

func histogram(src *image.Gray) [256]int {
	var hist [256]int
	w := src.Rect.Dx()
	for y := 0; y < src.Rect.Dy(); y++ {
		for _, v := range src.Pix[y*src.Stride : y*src.Stride+w] {
			hist[v]++
		}
	}
	return hist
}

func applyLUT(src *image.Gray, lut *[256]uint8) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+w]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, v := range in {
			out[x] = lut[v]
		}
	}
	return dst
}

func clone(src *image.Gray) *image.Gray {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(i)
	}
	return applyLUT(src, &lut)
}

// toGray keeps the red channel of an already gray NRGBA image.
func toGray(src *image.NRGBA) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		in := src.Pix[y*src.Stride:]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range out {
			out[x] = in[x*4]
		}
	}
	return dst
}

func reflect101(p, n int) int {
	if n == 1 {
		return 0
	}
	for p < 0 || p >= n {
		if p < 0 {
			p = -p
		}
		if p >= n {
			p = 2*(n-1) - p
		}
	}
	return p
}

func saturate(v float64) uint8 {
	v = math.RoundToEven(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
