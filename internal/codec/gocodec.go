package codec

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"photo-cleaner/internal/models"
)

const DefaultJPEGQuality = 95

// GoCodec needs no native libraries. WebP can be read but not written.
type GoCodec struct {
	jpegQuality int
}

func NewGoCodec(jpegQuality int) *GoCodec {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &GoCodec{jpegQuality: jpegQuality}
}

func (g *GoCodec) Name() string {
	return "go"
}

func (g *GoCodec) CanDecode(ext string) bool {
	switch NormalizeExt(ext) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

func (g *GoCodec) CanEncode(ext string) bool {
	switch NormalizeExt(ext) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

func (g *GoCodec) Decode(path string) (*Decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", models.ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: unrecognised image data", models.ErrUnsupportedFormat)
		}
		return nil, fmt.Errorf("failed to decode %s image: %w", ExtOf(path), err)
	}

	decoded, err := FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s samples: %w", format, err)
	}
	return decoded, nil
}

// FromImage converts any image.Image into a Decoded buffer. 16-bit samples
// are rescaled to the 0-255 range.
func FromImage(img image.Image) (*Decoded, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", models.ErrUnsupportedFormat, w, h)
	}
	if err := models.ValidateDimensions(w, h, "Decode"); err != nil {
		return nil, err
	}

	channels := channelCount(img)

	rgba := image.NewRGBA64(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	pix := make([]float64, w*h*channels)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			s := row[x*8:]
			o := (y*w + x) * channels
			for c := 0; c < channels; c++ {
				v := uint16(s[c*2])<<8 | uint16(s[c*2+1])
				pix[o+c] = float64(v) / 257
			}
		}
	}

	return &Decoded{Width: w, Height: h, Channels: channels, Pix: pix}, nil
}

func channelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		return 4
	}
	return 3
}

func (g *GoCodec) Encode(path string, buf *models.ImageBuffer) error {
	img, err := ToImage(buf)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := g.encode(w, ExtOf(path), img); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return f.Close()
}

func (g *GoCodec) encode(w io.Writer, ext string, img image.Image) error {
	switch ext {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: g.jpegQuality})
	case ".gif":
		return gif.Encode(w, img, &gif.Options{NumColors: 256})
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%w: cannot encode %q", models.ErrUnsupportedFormat, ext)
	}
}

// ToImage quantises a 3-channel 0-255 buffer into an opaque 8-bit image.
func ToImage(buf *models.ImageBuffer) (*image.NRGBA, error) {
	if err := buf.Validate("Encode"); err != nil {
		return nil, err
	}
	if buf.Channels != 3 {
		return nil, fmt.Errorf("encode requires 3 channels, got %d", buf.Channels)
	}

	img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < buf.Width; x++ {
			o := buf.Offset(x, y, 0)
			row[x*4] = Quantize(buf.Pix[o])
			row[x*4+1] = Quantize(buf.Pix[o+1])
			row[x*4+2] = Quantize(buf.Pix[o+2])
			row[x*4+3] = 0xff
		}
	}
	return img, nil
}
