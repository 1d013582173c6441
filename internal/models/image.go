package models

import (
	"fmt"
)

// MaxDimension bounds either side of an image accepted by the pipeline.
const MaxDimension = 32768

// ImageBuffer holds interleaved row-major pixel samples as float64.
// Stages agree on the scale: intake and output use 0-255, the cascade
// works internally on 0-1.
type ImageBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []float64
}

// NewImageBuffer allocates a zeroed buffer after validating its geometry.
func NewImageBuffer(width, height, channels int) (*ImageBuffer, error) {
	if err := ValidateDimensions(width, height, "NewImageBuffer"); err != nil {
		return nil, err
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}

	return &ImageBuffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float64, width*height*channels),
	}, nil
}

// ValidateDimensions rejects empty or oversized geometry.
func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}

	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}

	return nil
}

// Offset returns the index of channel c of pixel (x, y) in Pix.
func (b *ImageBuffer) Offset(x, y, c int) int {
	return (y*b.Width+x)*b.Channels + c
}

func (b *ImageBuffer) At(x, y, c int) float64 {
	return b.Pix[b.Offset(x, y, c)]
}

func (b *ImageBuffer) Set(x, y, c int, v float64) {
	b.Pix[b.Offset(x, y, c)] = v
}

// Clone returns a deep copy.
func (b *ImageBuffer) Clone() *ImageBuffer {
	pix := make([]float64, len(b.Pix))
	copy(pix, b.Pix)
	return &ImageBuffer{
		Width:    b.Width,
		Height:   b.Height,
		Channels: b.Channels,
		Pix:      pix,
	}
}

// SameShape reports whether both buffers have identical width, height and channels.
func (b *ImageBuffer) SameShape(other *ImageBuffer) bool {
	if b == nil || other == nil {
		return false
	}
	return b.Width == other.Width && b.Height == other.Height && b.Channels == other.Channels
}

// Validate checks that Pix matches the declared geometry.
func (b *ImageBuffer) Validate(operation string) error {
	if b == nil {
		return fmt.Errorf("image buffer is nil for operation: %s", operation)
	}
	if err := ValidateDimensions(b.Width, b.Height, operation); err != nil {
		return err
	}
	if b.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d for operation: %s", b.Channels, operation)
	}
	if want := b.Width * b.Height * b.Channels; len(b.Pix) != want {
		return fmt.Errorf("buffer holds %d samples, expected %d for operation: %s", len(b.Pix), want, operation)
	}
	return nil
}

// Scale multiplies every sample by factor in place.
func (b *ImageBuffer) Scale(factor float64) {
	for i := range b.Pix {
		b.Pix[i] *= factor
	}
}

// Fill sets every pixel to the given per-channel values.
func (b *ImageBuffer) Fill(values ...float64) {
	if len(values) != b.Channels {
		panic(fmt.Sprintf("Fill: got %d values for %d channels", len(values), b.Channels))
	}
	for i := 0; i < len(b.Pix); i += b.Channels {
		copy(b.Pix[i:i+b.Channels], values)
	}
}

func (b *ImageBuffer) String() string {
	return fmt.Sprintf("%dx%dx%d", b.Width, b.Height, b.Channels)
}
