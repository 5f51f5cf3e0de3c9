package filter

import "fmt"

// Params holds the fixed settings of the cartoon pipeline.
type Params struct {
	BilateralDiameter int
	SigmaColor        float64
	SigmaSpace        float64
	CannyLow          float32
	CannyHigh         float32
	QuantizationStep  uint8 // Samples are floored to a multiple of this value
}

// DefaultParams returns the parameters the service runs with.
func DefaultParams() Params {
	return Params{
		BilateralDiameter: 9,
		SigmaColor:        30,
		SigmaSpace:        7,
		CannyLow:          100,
		CannyHigh:         200,
		QuantizationStep:  32,
	}
}

// Validate reports the first parameter outside its accepted range.
func (p Params) Validate() error {
	if p.BilateralDiameter <= 0 {
		return fmt.Errorf("bilateral diameter must be > 0, got %d", p.BilateralDiameter)
	}
	if p.SigmaColor <= 0 || p.SigmaSpace <= 0 {
		return fmt.Errorf("bilateral sigmas must be > 0, got color=%v space=%v", p.SigmaColor, p.SigmaSpace)
	}
	if p.CannyLow <= 0 || p.CannyHigh <= 0 {
		return fmt.Errorf("canny thresholds must be > 0, got low=%v high=%v", p.CannyLow, p.CannyHigh)
	}
	if p.CannyLow > p.CannyHigh {
		return fmt.Errorf("canny low threshold %v is above high threshold %v", p.CannyLow, p.CannyHigh)
	}
	if p.QuantizationStep == 0 {
		return fmt.Errorf("quantization step must be > 0")
	}
	return nil
}
