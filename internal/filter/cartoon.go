package filter

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	// ErrEmptyFrame is returned when a stage receives or produces an empty Mat.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrUnsupportedFrame is returned for frames that are not 8-bit BGR.
	ErrUnsupportedFrame = errors.New("unsupported frame type")
)

// Cartoonify turns a BGR frame into a posterized image with black outlines.
// The output has the same size and type as src; the caller must close it.
func Cartoonify(src gocv.Mat, p Params) (gocv.Mat, error) {
	if err := p.Validate(); err != nil {
		return gocv.Mat{}, fmt.Errorf("invalid filter params: %w", err)
	}
	if err := checkColorFrame(src); err != nil {
		return gocv.Mat{}, err
	}

	gray, err := Grayscale(src)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer gray.Close()

	// Smoothing works on the color input, edges on the luminance map
	smooth, err := Smooth(src, p)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer smooth.Close()

	mask, err := EdgeMask(gray, p)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer mask.Close()

	quantized, err := Quantize(smooth, p.QuantizationStep)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer quantized.Close()

	return Combine(quantized, mask)
}

// Grayscale derives the single-channel luminance map of a BGR frame.
func Grayscale(src gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	if err := gocv.CvtColor(src, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return gocv.Mat{}, fmt.Errorf("failed to convert frame to grayscale: %w", err)
	}
	if gray.Empty() {
		gray.Close()
		return gocv.Mat{}, fmt.Errorf("grayscale: %w", ErrEmptyFrame)
	}
	return gray, nil
}

// Smooth applies the edge-preserving bilateral filter to a color frame.
func Smooth(src gocv.Mat, p Params) (gocv.Mat, error) {
	smooth := gocv.NewMat()
	if err := gocv.BilateralFilter(src, &smooth, p.BilateralDiameter, p.SigmaColor, p.SigmaSpace); err != nil {
		smooth.Close()
		return gocv.Mat{}, fmt.Errorf("failed to smooth frame: %w", err)
	}
	if smooth.Empty() {
		smooth.Close()
		return gocv.Mat{}, fmt.Errorf("bilateral filter: %w", ErrEmptyFrame)
	}
	return smooth, nil
}

// EdgeMask runs Canny on a luminance map and inverts the result,
// so edge pixels are 0 and every other pixel is 255.
func EdgeMask(gray gocv.Mat, p Params) (gocv.Mat, error) {
	edges := gocv.NewMat()
	defer edges.Close()

	if err := gocv.Canny(gray, &edges, p.CannyLow, p.CannyHigh); err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to detect edges: %w", err)
	}
	if edges.Empty() {
		return gocv.Mat{}, fmt.Errorf("canny: %w", ErrEmptyFrame)
	}

	mask := gocv.NewMat()
	if err := gocv.BitwiseNot(edges, &mask); err != nil {
		mask.Close()
		return gocv.Mat{}, fmt.Errorf("failed to invert edges: %w", err)
	}
	if mask.Empty() {
		mask.Close()
		return gocv.Mat{}, fmt.Errorf("invert edges: %w", ErrEmptyFrame)
	}
	return mask, nil
}

// Quantize floors every sample of src to a multiple of step.
func Quantize(src gocv.Mat, step uint8) (gocv.Mat, error) {
	if step == 0 {
		return gocv.Mat{}, fmt.Errorf("quantization step must be > 0")
	}

	table := quantizationTable(step)
	defer table.Close()

	dst := gocv.NewMat()
	if err := gocv.LUT(src, table, &dst); err != nil {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("failed to quantize frame: %w", err)
	}
	if dst.Empty() {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("quantize: %w", ErrEmptyFrame)
	}
	return dst, nil
}

// QuantizeSample is the per-sample rule behind Quantize.
func QuantizeSample(v, step uint8) uint8 {
	return v / step * step
}

// Combine keeps the quantized color where mask is set and writes black elsewhere.
func Combine(quantized, mask gocv.Mat) (gocv.Mat, error) {
	if quantized.Empty() || mask.Empty() {
		return gocv.Mat{}, fmt.Errorf("combine: %w", ErrEmptyFrame)
	}
	if quantized.Rows() != mask.Rows() || quantized.Cols() != mask.Cols() {
		return gocv.Mat{}, fmt.Errorf("combine: mask is %dx%d, frame is %dx%d",
			mask.Cols(), mask.Rows(), quantized.Cols(), quantized.Rows())
	}

	// Masked-out pixels are never written, so dst starts black
	dst := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), quantized.Rows(), quantized.Cols(), quantized.Type())
	if err := gocv.BitwiseAndWithMask(quantized, quantized, &dst, mask); err != nil {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("failed to apply edge mask: %w", err)
	}
	return dst, nil
}

// quantizationTable builds the 256-entry lookup table used by Quantize.
func quantizationTable(step uint8) gocv.Mat {
	table := gocv.NewMatWithSize(1, 256, gocv.MatTypeCV8U)
	for i := 0; i < 256; i++ {
		table.SetUCharAt(0, i, QuantizeSample(uint8(i), step))
	}
	return table
}

func checkColorFrame(src gocv.Mat) error {
	if src.Empty() {
		return ErrEmptyFrame
	}
	if src.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: %d channels, type %v", ErrUnsupportedFrame, src.Channels(), src.Type())
	}
	return nil
}
