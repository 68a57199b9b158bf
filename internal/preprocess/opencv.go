//go:build opencv

package preprocess

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// OpenCV runs the pipeline through gocv.
type OpenCV struct {
	Params Params
	lut    gocv.Mat
}

// NewOpenCV precomputes the gamma table used by every call.
func NewOpenCV(p Params) (Preprocessor, error) {
	table := make([]byte, 256)
	exp := 1 / p.Gamma
	for i := range table {
		table[i] = uint8(255 * math.Pow(float64(i)/255, exp))
	}
	lut, err := gocv.NewMatFromBytes(1, 256, gocv.MatTypeCV8U, table)
	if err != nil {
		return nil, fmt.Errorf("gamma table: %w", err)
	}
	return &OpenCV{Params: p, lut: lut}, nil
}

func (o *OpenCV) Name() string { return NameOpenCV }

// Preprocess mirrors Standard.Preprocess with OpenCV primitives.
func (o *OpenCV) Preprocess(img image.Image) (*image.Gray, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("image to mat: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(blurred, &equalized)

	clahe := gocv.NewCLAHEWithParams(o.Params.ClipLimit, image.Pt(o.Params.TileGrid, o.Params.TileGrid))
	defer clahe.Close()
	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(equalized, &enhanced)

	corrected := gocv.NewMat()
	defer corrected.Close()
	gocv.LUT(enhanced, o.lut, &corrected)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(corrected, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(binary, &inverted)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(o.Params.OpenKernel, o.Params.OpenKernel))
	defer kernel.Close()
	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(inverted, &opened, gocv.MorphOpen, kernel)

	out, err := opened.ToImage()
	if err != nil {
		return nil, fmt.Errorf("mat to image: %w", err)
	}
	g, ok := out.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected mat image type %T", out)
	}
	return g, nil
}
