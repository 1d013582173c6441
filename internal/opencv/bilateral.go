package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"photo-cleaner/internal/models"
	"photo-cleaner/internal/processing/filters"
)

// BilateralFilter runs OpenCV's bilateral filter on 32-bit float samples,
// so the 0-1 working scale of the cascade is kept without 8-bit rounding.
type BilateralFilter struct {
	diameter   int
	sigmaColor float64
	sigmaSpace float64
}

// NewBilateralSmoother is the filters.SmootherFactory backed by OpenCV.
func NewBilateralSmoother(diameter int, sigmaColor, sigmaSpace float64) (filters.Smoother, error) {
	if diameter < 1 {
		return nil, fmt.Errorf("bilateral diameter must be positive, got %d", diameter)
	}
	if sigmaColor <= 0 || sigmaSpace <= 0 {
		return nil, fmt.Errorf("bilateral sigmas must be positive, got color=%v space=%v", sigmaColor, sigmaSpace)
	}
	return &BilateralFilter{
		diameter:   diameter,
		sigmaColor: sigmaColor,
		sigmaSpace: sigmaSpace,
	}, nil
}

func (b *BilateralFilter) Name() string {
	return "opencv_bilateral_filter"
}

// Apply filters src into dst. The colour distance OpenCV uses is the sum of
// absolute channel differences, so channel order does not matter here.
func (b *BilateralFilter) Apply(src, dst *models.ImageBuffer) error {
	if !src.SameShape(dst) {
		return fmt.Errorf("bilateral: shape mismatch %v vs %v", src, dst)
	}
	if src.Channels != 3 {
		return fmt.Errorf("bilateral: requires 3 channels, got %d", src.Channels)
	}

	in := gocv.NewMatWithSize(src.Height, src.Width, gocv.MatTypeCV32FC3)
	defer in.Close()
	samples, err := in.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("failed to access Mat samples: %w", err)
	}
	for i, v := range src.Pix {
		samples[i] = float32(v)
	}

	out := gocv.NewMat()
	defer out.Close()
	gocv.BilateralFilter(in, &out, b.diameter, b.sigmaColor, b.sigmaSpace)
	if err := validateMat(out, "BilateralFilter"); err != nil {
		return err
	}

	filtered, err := out.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("failed to access Mat samples: %w", err)
	}
	if len(filtered) != len(dst.Pix) {
		return fmt.Errorf("bilateral: OpenCV returned %d samples, want %d", len(filtered), len(dst.Pix))
	}
	for i, v := range filtered {
		dst.Pix[i] = float64(v)
	}
	return nil
}
