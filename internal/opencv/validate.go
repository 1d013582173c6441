package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"photo-cleaner/internal/models"
)

func validateMat(mat gocv.Mat, operation string) error {
	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}
	return models.ValidateDimensions(mat.Cols(), mat.Rows(), operation)
}

// sampleScale returns the divisor that maps a Mat's samples onto 0-255.
func sampleScale(matType gocv.MatType, operation string) (float64, error) {
	switch matType {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return 1, nil
	case gocv.MatTypeCV16UC1, gocv.MatTypeCV16UC3, gocv.MatTypeCV16UC4:
		return 257, nil
	default:
		return 0, fmt.Errorf("%w: unsupported MatType %d for operation: %s",
			models.ErrUnsupportedFormat, int(matType), operation)
	}
}

func float64Type(channels int) (gocv.MatType, error) {
	switch channels {
	case 1:
		return gocv.MatTypeCV64FC1, nil
	case 3:
		return gocv.MatTypeCV64FC3, nil
	case 4:
		return gocv.MatTypeCV64FC4, nil
	default:
		return 0, fmt.Errorf("%w: unsupported channel count %d", models.ErrUnsupportedFormat, channels)
	}
}
