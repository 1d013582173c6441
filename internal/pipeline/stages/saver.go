package stages

import (
	"fmt"
	"os"
	"path/filepath"

	"photo-cleaner/internal/codec"
	"photo-cleaner/internal/logger"
	"photo-cleaner/internal/models"
)

type Saver struct {
	codec  codec.Codec
	logger logger.Logger
}

func NewSaver(c codec.Codec, log logger.Logger) *Saver {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Saver{codec: c, logger: log}
}

// Save writes buf to path in the format implied by its extension, creating
// parent directories as needed. Concurrent callers may share directories.
func (s *Saver) Save(path string, buf *models.ImageBuffer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := s.codec.Encode(path, buf); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}

	s.logger.Debug("PipelineSaver", "image saved", map[string]interface{}{
		"path":   path,
		"format": codec.ExtOf(path),
		"size":   buf.String(),
	})
	return nil
}
