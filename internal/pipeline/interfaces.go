package pipeline

import (
	"context"

	"photo-cleaner/internal/models"
	"photo-cleaner/internal/pipeline/stages"
)

// ImageLoader reads and normalises one input file.
type ImageLoader interface {
	Load(path string) (*models.ImageBuffer, error)
}

// ImageProcessor turns a normalised buffer into a cleaned one.
type ImageProcessor interface {
	Process(ctx context.Context, input *models.ImageBuffer) (*stages.Result, error)
}

// ImageSaver writes a cleaned buffer to disk.
type ImageSaver interface {
	Save(path string, buf *models.ImageBuffer) error
}
