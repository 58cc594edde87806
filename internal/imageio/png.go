package imageio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"unicode/utf8"

	"github.com/charliek/comfygcs/internal/domain"
	"github.com/klauspost/compress/zlib"
)

// image/png only exposes four compression presets, so saved images are
// written here to get an exact zlib level.

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNG color types
const (
	colorGray = 0
	colorRGB  = 2
	colorRGBA = 6
)

// PNG filter types
const (
	filterNone = iota
	filterSub
	filterUp
	filterAverage
	filterPaeth
	nFilter
)

// TextChunk is a key/value text pair embedded in the PNG. Text that fits
// Latin-1 is written as tEXt, anything else as uncompressed UTF-8 iTXt.
type TextChunk struct {
	Keyword string
	Text    string
}

// EncodePNG writes r as an 8-bit PNG compressed at the given zlib level
func EncodePNG(w io.Writer, r *Raster, level int, text []TextChunk) error {
	if r.Width <= 0 || r.Height <= 0 {
		return domain.Errorf(domain.ErrEncode, "invalid dimensions %dx%d", r.Width, r.Height)
	}
	if len(r.Pix) != r.Width*r.Height*r.Channels {
		return domain.Errorf(domain.ErrEncode, "pixel buffer has %d bytes, want %d", len(r.Pix), r.Width*r.Height*r.Channels)
	}

	var colorType byte
	switch r.Channels {
	case 1:
		colorType = colorGray
	case 3:
		colorType = colorRGB
	case 4:
		colorType = colorRGBA
	default:
		return domain.Errorf(domain.ErrEncode, "unsupported channel count %d", r.Channels)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(pngSignature); err != nil {
		return domain.Errorf(domain.ErrEncode, "write signature: %v", err)
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(r.Width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(r.Height))
	ihdr[8] = 8 // bit depth
	ihdr[9] = colorType
	if err := writeChunk(bw, "IHDR", ihdr); err != nil {
		return err
	}

	for _, t := range text {
		name, payload, err := textChunk(t)
		if err != nil {
			return err
		}
		if err := writeChunk(bw, name, payload); err != nil {
			return err
		}
	}

	idat, err := compressScanlines(r, level)
	if err != nil {
		return err
	}
	if err := writeChunk(bw, "IDAT", idat); err != nil {
		return err
	}
	if err := writeChunk(bw, "IEND", nil); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return domain.Errorf(domain.ErrEncode, "flush png: %v", err)
	}
	return nil
}

// WritePNGFile encodes r into a new file at path
func WritePNGFile(path string, r *Raster, level int, text []TextChunk) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return domain.Errorf(domain.ErrIO, "failed to create %s: %v", path, err)
	}

	if err := EncodePNG(f, r, level, text); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return domain.Errorf(domain.ErrIO, "failed to close %s: %v", path, err)
	}
	return nil
}

// textChunk returns the chunk type and payload for t
func textChunk(t TextChunk) (string, []byte, error) {
	if len(t.Keyword) == 0 || len(t.Keyword) > 79 {
		return "", nil, domain.Errorf(domain.ErrEncode, "invalid text keyword %q", t.Keyword)
	}
	key, ok := latin1(t.Keyword)
	if !ok {
		return "", nil, domain.Errorf(domain.ErrEncode, "text keyword %q is not Latin-1", t.Keyword)
	}

	if text, ok := latin1(t.Text); ok {
		return "tEXt", append(append(key, 0), text...), nil
	}

	// keyword, compression flag, method, empty language tag and translated keyword
	payload := append(key, 0, 0, 0, 0, 0)
	return "iTXt", append(payload, t.Text...), nil
}

// latin1 transcodes valid UTF-8 made only of code points below 256
func latin1(s string) ([]byte, bool) {
	if !utf8.ValidString(s) {
		return nil, false
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}

func writeChunk(w io.Writer, name string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	copy(header[4:], name)

	crc := crc32.NewIEEE()
	crc.Write(header[4:8])
	crc.Write(data)

	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	for _, b := range [][]byte{header[:], data, footer[:]} {
		if _, err := w.Write(b); err != nil {
			return domain.Errorf(domain.ErrEncode, "write %s chunk: %v", name, err)
		}
	}
	return nil
}

func compressScanlines(r *Raster, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, domain.Errorf(domain.ErrEncode, "zlib level %d: %v", level, err)
	}

	bpp := r.Channels
	stride := r.Width * bpp
	prev := make([]byte, stride)
	var candidates [nFilter][]byte
	for i := range candidates {
		candidates[i] = make([]byte, stride+1)
	}

	for y := 0; y < r.Height; y++ {
		cur := r.Pix[y*stride : (y+1)*stride]
		best := filterRow(cur, prev, bpp, &candidates)
		if _, err := zw.Write(best); err != nil {
			return nil, domain.Errorf(domain.ErrEncode, "compress row %d: %v", y, err)
		}
		prev = cur
	}

	if err := zw.Close(); err != nil {
		return nil, domain.Errorf(domain.ErrEncode, "finish zlib stream: %v", err)
	}
	return buf.Bytes(), nil
}

// filterRow applies every filter to cur and returns the candidate with the
// smallest sum of absolute signed residuals, prefixed by its filter byte.
func filterRow(cur, prev []byte, bpp int, candidates *[nFilter][]byte) []byte {
	bestSum, best := -1, 0

	for ft := 0; ft < nFilter; ft++ {
		out := candidates[ft]
		out[0] = byte(ft)
		sum := 0
		for i := range cur {
			var left, up, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up = prev[i]

			var v byte
			switch ft {
			case filterNone:
				v = cur[i]
			case filterSub:
				v = cur[i] - left
			case filterUp:
				v = cur[i] - up
			case filterAverage:
				v = cur[i] - byte((int(left)+int(up))/2)
			case filterPaeth:
				v = cur[i] - paeth(left, up, upLeft)
			}
			out[i+1] = v
			sum += absInt(int(int8(v)))
		}
		if bestSum < 0 || sum < bestSum {
			bestSum, best = sum, ft
		}
	}

	return candidates[best]
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
