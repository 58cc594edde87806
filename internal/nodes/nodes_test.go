package nodes

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/charliek/comfygcs/internal/client"
	"github.com/charliek/comfygcs/internal/config"
	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/imageio"
	"github.com/charliek/comfygcs/internal/storage"
	"github.com/charliek/comfygcs/internal/tensor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestProvider(mock *storage.MockStorage) *client.Provider {
	open := func(ctx context.Context, params domain.Params) (storage.Storage, error) {
		return mock, nil
	}
	return client.NewProvider(open, domain.Params{Bucket: "test-bucket"}, client.Options{})
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func batch(t *testing.T, n, h, w, c int, fill func(i int) float32) *tensor.Tensor {
	t.Helper()
	x := tensor.New(n, h, w, c)
	per := h * w * c
	for i := range x.Data {
		x.Data[i] = fill(i / per)
	}
	return x
}

func TestLoader_FirstListedMatch(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.SetData("cats/2.png", pngBytes(t, solidImage(2, 2, color.White)))
	mock.SetData("cats/1.png", pngBytes(t, solidImage(3, 5, color.Black)))
	mock.SetData("dogs/0.png", pngBytes(t, solidImage(1, 1, color.White)))

	staging := t.TempDir()
	loader := NewLoader(newTestProvider(mock), staging, zerolog.Nop())

	res, err := loader.Load(context.Background(), LoadInputs{Prefix: "cats/"})
	require.NoError(t, err)
	require.Equal(t, "cats/1.png", res.Object)
	require.Equal(t, filepath.Join(staging, "1.png"), res.LocalPath)
	require.Equal(t, 1, mock.DownloadCalls())

	require.Equal(t, []int{1, 5, 3, 3}, res.Images.Shape)
	require.Equal(t, []int{1, constants.MaskFallbackSize, constants.MaskFallbackSize}, res.Masks.Shape)
	for _, v := range res.Masks.Data {
		require.Zero(t, v)
	}
}

func TestLoader_ExplicitFilename(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.SetData("cats/1.png", pngBytes(t, solidImage(1, 1, color.Black)))
	mock.SetData("cats/2.png", pngBytes(t, solidImage(4, 4, color.White)))

	loader := NewLoader(newTestProvider(mock), t.TempDir(), zerolog.Nop())

	res, err := loader.Load(context.Background(), LoadInputs{Prefix: "cats/", Filename: "2.png"})
	require.NoError(t, err)
	require.Equal(t, "cats/2.png", res.Object)
	require.Equal(t, []int{1, 4, 4, 3}, res.Images.Shape)
	require.Zero(t, mock.ListCalls())

	res, err = loader.Load(context.Background(), LoadInputs{Filename: "cats/1.png"})
	require.NoError(t, err)
	require.Equal(t, "cats/1.png", res.Object)
}

func TestLoader_ExplicitFilenamePrefixWithoutSlash(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.SetData("input-catalog/a.png", pngBytes(t, solidImage(2, 3, color.White)))

	loader := NewLoader(newTestProvider(mock), t.TempDir(), zerolog.Nop())

	res, err := loader.Load(context.Background(), LoadInputs{Prefix: "input-catalog", Filename: "a.png"})
	require.NoError(t, err)
	require.Equal(t, "input-catalog/a.png", res.Object)
	require.Equal(t, []int{1, 3, 2, 3}, res.Images.Shape)
}

func TestLoader_ReusesListingForSamePrefix(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.SetData("cats/1.png", pngBytes(t, solidImage(1, 1, color.Black)))
	mock.SetData("dogs/1.png", pngBytes(t, solidImage(2, 2, color.White)))

	loader := NewLoader(newTestProvider(mock), t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := loader.Load(ctx, LoadInputs{Prefix: "cats/"})
		require.NoError(t, err)
		require.Equal(t, "cats/1.png", res.Object)
	}
	require.Equal(t, 1, mock.ListCalls())
	require.Equal(t, 3, mock.DownloadCalls())

	res, err := loader.Load(ctx, LoadInputs{Prefix: "dogs/"})
	require.NoError(t, err)
	require.Equal(t, "dogs/1.png", res.Object)
	require.Equal(t, 2, mock.ListCalls())
}

func TestLoader_AlphaMask(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 0})

	mock := storage.NewMockStorage()
	mock.SetData("a.png", pngBytes(t, img))

	res, err := NewLoader(newTestProvider(mock), t.TempDir(), zerolog.Nop()).
		Load(context.Background(), LoadInputs{Prefix: ""})
	require.NoError(t, err)
	require.Equal(t, []int{1, 1, 2}, res.Masks.Shape)
	require.InDelta(t, 0.0, res.Masks.At(0, 0, 0), 1e-6)
	require.InDelta(t, 1.0, res.Masks.At(0, 0, 1), 1e-6)
}

func TestLoader_NoFiles(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.SetData("dogs/1.png", []byte("x"))
	mock.SetData("cats/", nil)

	loader := NewLoader(newTestProvider(mock), t.TempDir(), zerolog.Nop())

	_, err := loader.Load(context.Background(), LoadInputs{Prefix: "cats/"})
	require.ErrorIs(t, err, domain.ErrNoFilesFound)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Zero(t, mock.DownloadCalls())
}

func TestLoader_UndecodableObject(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.SetData("junk.png", []byte("definitely not a png"))

	_, err := NewLoader(newTestProvider(mock), t.TempDir(), zerolog.Nop()).
		Load(context.Background(), LoadInputs{})
	require.ErrorIs(t, err, domain.ErrDecode)
}

func TestLoader_StorageErrorSurfaces(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.ListError = domain.Errorf(domain.ErrAuth, "permission denied")

	_, err := NewLoader(newTestProvider(mock), t.TempDir(), zerolog.Nop()).
		Load(context.Background(), LoadInputs{Prefix: "cats/"})
	require.ErrorIs(t, err, domain.ErrAuth)
}

func TestSaver_TwoImages(t *testing.T) {
	mock := storage.NewMockStorage()
	tempDir := t.TempDir()
	saver := NewSaver(newTestProvider(mock), tempDir, zerolog.Nop())

	images := batch(t, 2, 64, 64, 3, func(i int) float32 { return float32(i) * 0.5 })

	res, err := saver.Save(context.Background(), SaveInputs{Images: images, FilenamePrefix: "Image"})
	require.NoError(t, err)
	require.Equal(t, []string{
		"output/Image_64x64_00000_.png",
		"output/Image_64x64_00001_.png",
	}, res.Paths)
	require.Equal(t, []domain.UIImage{
		{Filename: "Image_64x64_00000_.png", Subfolder: "", Type: "output"},
		{Filename: "Image_64x64_00001_.png", Subfolder: "", Type: "output"},
	}, res.UI.Images)
	require.Empty(t, res.Overwritten)

	data, ok := mock.GetData("output/Image_64x64_00001_.png")
	require.True(t, ok)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 64, 64), decoded.Bounds())
	r, _, _, _ := decoded.At(10, 10).RGBA()
	require.Equal(t, uint32(127), r>>8)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSaver_CountersFollowBatchOrder(t *testing.T) {
	mock := storage.NewMockStorage()
	saver := NewSaver(newTestProvider(mock), t.TempDir(), zerolog.Nop())

	images := batch(t, 5, 3, 7, 1, func(i int) float32 { return 0 })

	res, err := saver.Save(context.Background(), SaveInputs{Images: images})
	require.NoError(t, err)
	require.Len(t, res.Paths, 5)
	for i, p := range res.Paths {
		require.Equal(t, fmt.Sprintf("output/ComfyUI_7x3_%05d_.png", i), p)
	}
	require.Equal(t, 5, mock.Count())
}

func TestSaver_UploadMatchesLocalEncoding(t *testing.T) {
	mock := storage.NewMockStorage()
	saver := NewSaver(newTestProvider(mock), t.TempDir(), zerolog.Nop())

	images := batch(t, 1, 4, 4, 4, func(int) float32 { return 0.25 })
	res, err := saver.Save(context.Background(), SaveInputs{Images: images, FilenamePrefix: "rt", Prompt: `{"a":1}`})
	require.NoError(t, err)

	img, err := images.Index(0)
	require.NoError(t, err)
	raster, err := imageio.TensorToRaster(img)
	require.NoError(t, err)

	var want bytes.Buffer
	require.NoError(t, imageio.EncodePNG(&want, raster, constants.PNGCompressionLevel,
		[]imageio.TextChunk{{Keyword: "prompt", Text: `{"a":1}`}}))

	got, ok := mock.GetData(res.Paths[0])
	require.True(t, ok)
	require.Equal(t, want.Bytes(), got)
}

func TestSaver_ReportsOverwrites(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.SetData("output/Image_2x2_00001_.png", []byte("old"))
	saver := NewSaver(newTestProvider(mock), t.TempDir(), zerolog.Nop())

	images := batch(t, 2, 2, 2, 3, func(int) float32 { return 1 })
	res, err := saver.Save(context.Background(), SaveInputs{Images: images, FilenamePrefix: "Image"})
	require.NoError(t, err)
	require.Equal(t, []string{"output/Image_2x2_00001_.png"}, res.Overwritten)

	data, ok := mock.GetData("output/Image_2x2_00001_.png")
	require.True(t, ok)
	require.NotEqual(t, []byte("old"), data)

	res, err = saver.Save(context.Background(), SaveInputs{Images: images, FilenamePrefix: "Image"})
	require.NoError(t, err)
	require.Equal(t, res.Paths, res.Overwritten)
}

func TestSaver_ExistsCheckFailureStillSaves(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.ExistsError = domain.Errorf(domain.ErrAuth, "storage.objects.get denied")
	saver := NewSaver(newTestProvider(mock), t.TempDir(), zerolog.Nop())

	res, err := saver.Save(context.Background(), SaveInputs{Images: batch(t, 1, 2, 2, 3, func(int) float32 { return 0 })})
	require.NoError(t, err)
	require.Empty(t, res.Overwritten)
	require.Equal(t, 1, mock.Count())
}

func TestSaver_MidBatchFailure(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.UploadError = domain.Errorf(domain.ErrUploadFailed, "quota exceeded")
	mock.FailUploadAfter = 1

	tempDir := t.TempDir()
	saver := NewSaver(newTestProvider(mock), tempDir, zerolog.Nop())

	images := batch(t, 3, 8, 8, 3, func(int) float32 { return 1 })
	res, err := saver.Save(context.Background(), SaveInputs{Images: images, FilenamePrefix: "Image"})
	require.ErrorIs(t, err, domain.ErrUploadFailed)
	require.Nil(t, res)

	// No rollback of the image that made it
	_, ok := mock.GetData("output/Image_8x8_00000_.png")
	require.True(t, ok)
	require.Equal(t, 1, mock.Count())

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSaver_RejectsBadInput(t *testing.T) {
	saver := NewSaver(newTestProvider(storage.NewMockStorage()), t.TempDir(), zerolog.Nop())

	tests := []struct {
		name   string
		images *tensor.Tensor
	}{
		{name: "nil", images: nil},
		{name: "rank 3", images: tensor.New(4, 4, 3)},
		{name: "empty batch", images: tensor.New(0, 4, 4, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := saver.Save(context.Background(), SaveInputs{Images: tt.images})
			require.ErrorIs(t, err, domain.ErrInvalidArgs)
		})
	}

	_, err := saver.Save(context.Background(), SaveInputs{Images: tensor.New(1, 2, 2, 2)})
	require.ErrorIs(t, err, domain.ErrEncode)
}

func TestSaver_ParamMismatch(t *testing.T) {
	mock := storage.NewMockStorage()
	provider := newTestProvider(mock)
	loader := NewLoader(provider, t.TempDir(), zerolog.Nop())
	saver := NewSaver(provider, t.TempDir(), zerolog.Nop())

	_, err := loader.Load(context.Background(), LoadInputs{Prefix: "none/"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = saver.Save(context.Background(), SaveInputs{
		Params: domain.Params{Bucket: "another-bucket"},
		Images: tensor.New(1, 1, 1, 3),
	})
	require.ErrorIs(t, err, domain.ErrConfigMismatch)
	require.Zero(t, mock.UploadCalls())
}

func TestPNGText(t *testing.T) {
	chunks := pngText(`{"p":1}`, map[string]string{"workflow": "w", "author": "a"})
	require.Equal(t, []imageio.TextChunk{
		{Keyword: "prompt", Text: `{"p":1}`},
		{Keyword: "author", Text: "a"},
		{Keyword: "workflow", Text: "w"},
	}, chunks)
	require.Empty(t, pngText("", nil))
}

func TestRegistry(t *testing.T) {
	cfg := &config.Config{Bucket: "my-bucket", Project: "my-project", InputPrefix: "in/"}
	defs := Registry(cfg)

	require.Equal(t, map[string]string{
		"LoadImageGCS": "Load Image from GCS",
		"SaveImageGCS": "Save Image to GCS",
	}, DisplayNameMappings(defs))

	classes := ClassMappings(defs)
	require.Len(t, classes, 2)

	load := classes[LoadImageID]
	require.Equal(t, "ComfyGCS", load.Category)
	require.Equal(t, []string{"IMAGE", "MASK"}, load.ReturnTypes)
	require.Equal(t, "in/", load.InputTypes.Required[0].Default)
	require.Equal(t, "my-bucket", load.InputTypes.Required[1].Default)

	save := classes[SaveImageID]
	require.True(t, save.OutputNode)
	require.Equal(t, []bool{true}, save.OutputIsList)
	require.Equal(t, []string{"gcs_image_paths"}, save.ReturnNames)
	require.Equal(t, "Image", save.InputTypes.Required[3].Default)
	require.Len(t, save.InputTypes.Hidden, 2)
}
