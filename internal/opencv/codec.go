// Package opencv provides the OpenCV-backed image codec, the startup
// capability check for it and the OpenCV bilateral smoothing pass.
package opencv

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"photo-cleaner/internal/codec"
	"photo-cleaner/internal/models"
)

// Codec reads and writes images through OpenCV's imgcodecs module. Which
// formats work depends on how the native library was built, so support is
// checked per extension and cached.
type Codec struct {
	jpegQuality int

	mu      sync.Mutex
	support map[string]formatSupport
}

type formatSupport struct {
	encode bool
	decode bool
}

func NewCodec(jpegQuality int) *Codec {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = codec.DefaultJPEGQuality
	}
	return &Codec{
		jpegQuality: jpegQuality,
		support:     make(map[string]formatSupport),
	}
}

func (c *Codec) Name() string {
	return "opencv"
}

func (c *Codec) Decode(path string) (*codec.Decoded, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", models.ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("%w: opencv could not decode %s", models.ErrUnsupportedFormat, codec.ExtOf(path))
	}

	return matToDecoded(mat)
}

func matToDecoded(mat gocv.Mat) (*codec.Decoded, error) {
	if err := validateMat(mat, "Decode"); err != nil {
		return nil, err
	}
	scale, err := sampleScale(mat.Type(), "Decode")
	if err != nil {
		return nil, err
	}

	channels := mat.Channels()
	ordered := gocv.NewMat()
	defer ordered.Close()
	switch channels {
	case 1:
		mat.CopyTo(&ordered)
	case 3:
		gocv.CvtColor(mat, &ordered, gocv.ColorBGRToRGB)
	case 4:
		gocv.CvtColor(mat, &ordered, gocv.ColorBGRAToRGBA)
	default:
		return nil, fmt.Errorf("%w: unsupported channel count %d", models.ErrUnsupportedFormat, channels)
	}

	floatType, err := float64Type(channels)
	if err != nil {
		return nil, err
	}
	samples := gocv.NewMat()
	defer samples.Close()
	ordered.ConvertTo(&samples, floatType)

	data, err := samples.DataPtrFloat64()
	if err != nil {
		return nil, fmt.Errorf("failed to access Mat samples: %w", err)
	}

	width, height := mat.Cols(), mat.Rows()
	pix := make([]float64, len(data))
	for i, v := range data {
		pix[i] = v / scale
	}

	// A fully opaque alpha plane carries no information.
	if channels == 4 && opaque(pix) {
		rgb := make([]float64, 0, width*height*3)
		for i := 0; i < len(pix); i += 4 {
			rgb = append(rgb, pix[i], pix[i+1], pix[i+2])
		}
		pix, channels = rgb, 3
	}

	return &codec.Decoded{Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

func opaque(rgba []float64) bool {
	for i := 3; i < len(rgba); i += 4 {
		if rgba[i] < 255 {
			return false
		}
	}
	return true
}

func (c *Codec) Encode(path string, buf *models.ImageBuffer) error {
	ext := codec.ExtOf(path)
	mat, err := bufferToMat(buf)
	if err != nil {
		return err
	}
	defer mat.Close()

	var ok bool
	switch ext {
	case ".jpg", ".jpeg":
		ok = gocv.IMWriteWithParams(path, mat, []int{int(gocv.IMWriteJpegQuality), c.jpegQuality})
	default:
		ok = gocv.IMWrite(path, mat)
	}
	if !ok {
		return fmt.Errorf("opencv failed to write %s image", ext)
	}
	return nil
}

// bufferToMat quantises a 3-channel RGB buffer into an 8-bit BGR Mat.
func bufferToMat(buf *models.ImageBuffer) (gocv.Mat, error) {
	if err := buf.Validate("Encode"); err != nil {
		return gocv.Mat{}, err
	}
	if buf.Channels != 3 {
		return gocv.Mat{}, fmt.Errorf("encode requires 3 channels, got %d", buf.Channels)
	}

	data := make([]byte, len(buf.Pix))
	for i := 0; i < len(buf.Pix); i += 3 {
		data[i] = codec.Quantize(buf.Pix[i+2])
		data[i+1] = codec.Quantize(buf.Pix[i+1])
		data[i+2] = codec.Quantize(buf.Pix[i])
	}

	mat, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to build Mat: %w", err)
	}
	return mat, nil
}

func (c *Codec) CanDecode(ext string) bool {
	return c.supportFor(ext).decode
}

func (c *Codec) CanEncode(ext string) bool {
	return c.supportFor(ext).encode
}

// supportFor encodes a small image with the extension's encoder and decodes the
// result again.
func (c *Codec) supportFor(ext string) formatSupport {
	ext = codec.NormalizeExt(ext)

	c.mu.Lock()
	defer c.mu.Unlock()
	if result, ok := c.support[ext]; ok {
		return result
	}

	result := formatSupport{}
	sample := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer sample.Close()

	encoded, err := gocv.IMEncode(gocv.FileExt(ext), sample)
	if err == nil {
		result.encode = encoded.Len() > 0
		decoded, derr := gocv.IMDecode(encoded.GetBytes(), gocv.IMReadUnchanged)
		if derr == nil {
			result.decode = !decoded.Empty()
			decoded.Close()
		}
		encoded.Close()
	}

	c.support[ext] = result
	return result
}

// CheckCapabilities verifies the OpenCV build can read and write every
// configured extension.
func CheckCapabilities(c *Codec, exts []string) codec.Capability {
	capability := codec.Check(c, exts)
	capability.Detail = fmt.Sprintf("%s (gocv %s, OpenCV %s)", capability.Detail, gocv.Version(), gocv.OpenCVVersion())
	return capability
}
