package imageio

import (
	"image"
	"image/color"
	"math"

	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/tensor"
)

// FrameToTensors converts one frame into an RGB image tensor [1,H,W,3] in [0,1]
// and a mask tensor [1,H,W] holding 1-alpha. Frames without alpha get a zero
// mask of the fixed fallback size.
func FrameToTensors(f Frame) (img *tensor.Tensor, mask *tensor.Tensor) {
	b := f.Image.Bounds()
	w, h := b.Dx(), b.Dy()

	img = tensor.New(1, h, w, 3)
	if f.HasAlpha {
		mask = tensor.New(1, h, w)
	} else {
		mask = tensor.New(1, constants.MaskFallbackSize, constants.MaskFallbackSize)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := nrgbaAt(f.Image, b.Min.X+x, b.Min.Y+y)
			img.Set(float32(c.R)/255, 0, y, x, 0)
			img.Set(float32(c.G)/255, 0, y, x, 1)
			img.Set(float32(c.B)/255, 0, y, x, 2)
			if f.HasAlpha {
				mask.Set(1-float32(c.A)/255, 0, y, x)
			}
		}
	}

	return img, mask
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	switch m := img.(type) {
	case *image.NRGBA:
		return m.NRGBAAt(x, y)
	case *image.Gray:
		v := m.GrayAt(x, y).Y
		return color.NRGBA{R: v, G: v, B: v, A: 255}
	default:
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	}
}

// FramesToTensors converts decoded frames into an image batch [B,H,W,3] and a
// mask batch. A single frame still comes back with a batch axis of 1.
func FramesToTensors(frames []Frame) (images *tensor.Tensor, masks *tensor.Tensor, err error) {
	if len(frames) == 0 {
		return nil, nil, domain.Errorf(domain.ErrDecode, "image has no frames")
	}

	imgs := make([]*tensor.Tensor, 0, len(frames))
	msks := make([]*tensor.Tensor, 0, len(frames))
	for _, f := range frames {
		img, mask := FrameToTensors(f)
		imgs = append(imgs, img)
		msks = append(msks, mask)
	}

	if len(frames) == 1 {
		return imgs[0], msks[0], nil
	}

	images, err = tensor.Concat(imgs)
	if err != nil {
		return nil, nil, domain.Errorf(domain.ErrDecode, "frames differ in size: %v", err)
	}
	masks, err = tensor.Concat(msks)
	if err != nil {
		return nil, nil, domain.Errorf(domain.ErrDecode, "frame masks differ in size: %v", err)
	}
	return images, masks, nil
}

// Raster is an 8-bit interleaved pixel buffer with 1 (gray), 3 (RGB) or 4 (RGBA) channels
type Raster struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// TensorToRaster converts one image [H,W,C] with samples in [0,1] into an
// 8-bit raster: samples are scaled by 255, clipped to [0,255] and truncated.
func TensorToRaster(t *tensor.Tensor) (*Raster, error) {
	if t.Rank() != 3 {
		return nil, domain.Errorf(domain.ErrEncode, "expected an [H,W,C] image, got shape %v", t.Shape)
	}

	h, w, c := t.Dim(0), t.Dim(1), t.Dim(2)
	switch c {
	case 1, 3, 4:
	default:
		return nil, domain.Errorf(domain.ErrEncode, "unsupported channel count %d", c)
	}

	r := &Raster{Width: w, Height: h, Channels: c, Pix: make([]uint8, 0, len(t.Data))}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				r.Pix = append(r.Pix, toByte(t.At(y, x, ch)))
			}
		}
	}
	return r, nil
}

func toByte(v float32) uint8 {
	s := float64(v) * 255
	switch {
	case math.IsNaN(s) || s <= 0:
		return 0
	case s >= 255:
		return 255
	default:
		return uint8(s)
	}
}
