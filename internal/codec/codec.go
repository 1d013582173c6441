// Package codec decodes image files into float sample buffers and encodes
// processed buffers back to disk. Two implementations exist: a pure Go codec
// in this package and an OpenCV-backed one in internal/opencv.
package codec

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"photo-cleaner/internal/models"
)

// Decoded is the raw result of decoding a file: interleaved samples on the
// 0-255 scale with whatever channel count the file carried. Gray images have
// one channel and images with real transparency have four.
type Decoded struct {
	Width    int
	Height   int
	Channels int
	Pix      []float64
}

type Codec interface {
	Name() string
	Decode(path string) (*Decoded, error)
	Encode(path string, buf *models.ImageBuffer) error
	CanDecode(ext string) bool
	CanEncode(ext string) bool
}

type Status int

const (
	Ready Status = iota
	MissingDependency
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case MissingDependency:
		return "missing_dependency"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type Capability struct {
	Status Status
	Detail string
}

// Check reports whether c can both read and write every extension in exts.
func Check(c Codec, exts []string) Capability {
	var missing []string
	for _, ext := range exts {
		ext = NormalizeExt(ext)
		if !c.CanDecode(ext) {
			missing = append(missing, "decode "+ext)
		}
		if !c.CanEncode(ext) {
			missing = append(missing, "encode "+ext)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Capability{
			Status: MissingDependency,
			Detail: fmt.Sprintf("%s codec cannot %s", c.Name(), strings.Join(missing, ", ")),
		}
	}
	return Capability{Status: Ready, Detail: fmt.Sprintf("%s codec handles %s", c.Name(), strings.Join(exts, " "))}
}

// NormalizeExt lower-cases ext and makes sure it carries a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ExtOf returns the normalised extension of path.
func ExtOf(path string) string {
	return NormalizeExt(filepath.Ext(path))
}

// Quantize rounds a 0-255 sample to the nearest 8-bit value, saturating
// outside the range.
func Quantize(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
