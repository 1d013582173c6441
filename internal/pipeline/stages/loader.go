// Package stages holds the per-image steps of the pipeline: intake and
// normalisation, processing, and saving.
package stages

import (
	"fmt"
	"time"

	"photo-cleaner/internal/codec"
	"photo-cleaner/internal/logger"
	"photo-cleaner/internal/models"
)

type Loader struct {
	codec  codec.Codec
	logger logger.Logger
}

func NewLoader(c codec.Codec, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Loader{codec: c, logger: log}
}

// Load decodes the file at path and normalises it. It is the only file I/O
// of the intake stage.
func (l *Loader) Load(path string) (*models.ImageBuffer, error) {
	startTime := time.Now()

	decoded, err := l.codec.Decode(path)
	if err != nil {
		return nil, err
	}

	buf, err := Normalize(decoded)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("PipelineLoader", "image loaded", map[string]interface{}{
		"path":         path,
		"decoded":      fmt.Sprintf("%dx%dx%d", decoded.Width, decoded.Height, decoded.Channels),
		"normalized":   buf.String(),
		"codec":        l.codec.Name(),
		"load_time_ms": time.Since(startTime).Milliseconds(),
	})

	return buf, nil
}

// Normalize turns a decoded image into a 3-channel buffer with even width
// and height. A trailing odd row or column is cropped, never resampled.
func Normalize(decoded *codec.Decoded) (*models.ImageBuffer, error) {
	if decoded == nil {
		return nil, fmt.Errorf("%w: nothing decoded", models.ErrUnsupportedFormat)
	}
	if decoded.Channels != 3 {
		return nil, fmt.Errorf("%w: expected 3 channels, got %d", models.ErrUnsupportedFormat, decoded.Channels)
	}
	if len(decoded.Pix) != decoded.Width*decoded.Height*decoded.Channels {
		return nil, fmt.Errorf("decoded sample count %d does not match %dx%dx%d",
			len(decoded.Pix), decoded.Width, decoded.Height, decoded.Channels)
	}

	width := decoded.Width - decoded.Width%2
	height := decoded.Height - decoded.Height%2
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image %dx%d is too small", models.ErrUnsupportedFormat, decoded.Width, decoded.Height)
	}

	buf, err := models.NewImageBuffer(width, height, 3)
	if err != nil {
		return nil, err
	}

	rowLen := width * 3
	for y := 0; y < height; y++ {
		src := y * decoded.Width * 3
		copy(buf.Pix[y*rowLen:(y+1)*rowLen], decoded.Pix[src:src+rowLen])
	}
	return buf, nil
}
