// Package imageio converts between encoded raster files and the float tensors
// the host graph works with.
package imageio

import (
	"bytes"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"os"

	// Registered decoders
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/charliek/comfygcs/internal/domain"
)

// Frame is one decoded frame of a still or animated image
type Frame struct {
	Image image.Image
	// HasAlpha reports whether the source carried an alpha channel
	HasAlpha bool
}

// DecodeFile decodes every frame of the image at path
func DecodeFile(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.Errorf(domain.ErrIO, "failed to open %s: %v", path, err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode decodes every frame from r. Animated GIFs yield one composited frame
// per animation frame; other formats yield a single frame with EXIF orientation
// applied and 16-bit grayscale rescaled to 8 bits.
func Decode(r io.Reader) ([]Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.Errorf(domain.ErrIO, "failed to read image: %v", err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.Errorf(domain.ErrDecode, "unrecognized image: %v", err)
	}

	if format == "gif" {
		return decodeGIF(data)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.Errorf(domain.ErrDecode, "failed to decode %s: %v", format, err)
	}

	alpha := hasAlpha(img)
	img = normalize16(img)
	img = applyOrientation(img, readOrientation(data))

	return []Frame{{Image: img, HasAlpha: alpha}}, nil
}

func decodeGIF(data []byte) ([]Frame, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, domain.Errorf(domain.ErrDecode, "failed to decode gif: %v", err)
	}
	if len(g.Image) == 0 {
		return nil, domain.Errorf(domain.ErrDecode, "gif has no frames")
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	canvas := image.NewRGBA(bounds)
	frames := make([]Frame, 0, len(g.Image))

	for i, src := range g.Image {
		var previous *image.RGBA
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = cloneRGBA(canvas)
		}

		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)
		frames = append(frames, Frame{Image: cloneRGBA(canvas)})

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	return frames, nil
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// hasAlpha mirrors whether the decoded file had an alpha band. Go decodes
// alpha-less truecolor PNG and TIFF as opaque *image.RGBA.
func hasAlpha(img image.Image) bool {
	switch m := img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.Alpha, *image.Alpha16:
		return true
	case *image.RGBA:
		return !m.Opaque()
	case *image.RGBA64:
		return !m.Opaque()
	default:
		return false
	}
}

// normalize16 rescales 16-bit grayscale samples by 1/255 and clamps them to
// 8 bits, the treatment integer-mode images get before RGB conversion.
func normalize16(img image.Image) image.Image {
	g16, ok := img.(*image.Gray16)
	if !ok {
		return img
	}

	b := g16.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := g16.Gray16At(x, y).Y / 255
			if v > 255 {
				v = 255
			}
			out.Pix[out.PixOffset(x, y)] = uint8(v)
		}
	}
	return out
}
