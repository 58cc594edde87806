package nodes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charliek/comfygcs/internal/client"
	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/imageio"
	"github.com/charliek/comfygcs/internal/tensor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SaveInputs are the per-call inputs of the save node
type SaveInputs struct {
	Params domain.Params
	// Images is [B,H,W,C] with C of 1, 3 or 4 and samples in [0,1]
	Images *tensor.Tensor
	// FilenamePrefix defaults to "ComfyUI" when empty
	FilenamePrefix string
	// Prompt is the workflow prompt JSON, embedded as a "prompt" text chunk
	Prompt string
	// ExtraPNGInfo entries are embedded as one text chunk per key
	ExtraPNGInfo map[string]string
}

// SaveResult lists every saved object in batch order
type SaveResult struct {
	Paths []string `json:"paths"`
	UI    SaveUI   `json:"ui"`
	// Overwritten holds the paths that replaced an existing object
	Overwritten []string `json:"overwritten,omitempty"`
}

// SaveUI is the UI payload of a save
type SaveUI struct {
	Images []domain.UIImage `json:"images"`
}

// Saver is the save-image node
type Saver struct {
	provider *client.Provider
	tempDir  string
	log      zerolog.Logger
}

// NewSaver creates a saver that encodes into tempDir, or the OS temp dir when empty
func NewSaver(provider *client.Provider, tempDir string, log zerolog.Logger) *Saver {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Saver{
		provider: provider,
		tempDir:  tempDir,
		log:      log,
	}
}

// Save encodes every image in the batch as PNG and uploads it. All images
// share the path plan of the first one. Images already uploaded when a later
// one fails stay in the bucket.
func (s *Saver) Save(ctx context.Context, in SaveInputs) (*SaveResult, error) {
	if in.Images == nil || in.Images.Rank() != 4 || in.Images.Dim(0) == 0 {
		return nil, domain.Errorf(domain.ErrInvalidArgs, "expected a non-empty [B,H,W,C] image batch")
	}

	c, err := s.provider.Get(ctx, in.Params)
	if err != nil {
		return nil, err
	}

	prefix := in.FilenamePrefix
	if prefix == "" {
		prefix = constants.DefaultFilenamePrefix
	}

	height, width := in.Images.Dim(1), in.Images.Dim(2)
	plan := c.GetSavePath(prefix, width, height)
	s.log.Info().Str("folder", plan.Folder).Str("prefix", plan.Prefix).Msg("saving images")

	text := pngText(in.Prompt, in.ExtraPNGInfo)
	result := &SaveResult{
		Paths: make([]string, 0, in.Images.Dim(0)),
		UI:    SaveUI{Images: make([]domain.UIImage, 0, in.Images.Dim(0))},
	}

	counter := plan.Counter
	for i := 0; i < in.Images.Dim(0); i++ {
		img, err := in.Images.Index(i)
		if err != nil {
			return nil, err
		}

		file := fmt.Sprintf("%s_%0*d_.png", plan.Filename, constants.CounterWidth, counter)
		target := domain.ObjectPath(plan.Folder, file)

		// Only a hint: writers without read access still get to save
		exists, err := c.Exists(ctx, target)
		if err != nil {
			s.log.Debug().Err(err).Str("object", target).Msg("could not check for existing object")
		} else if exists {
			s.log.Warn().Str("object", target).Msg("overwriting existing object")
			result.Overwritten = append(result.Overwritten, target)
		}

		remote, err := s.saveOne(ctx, c, img, target, text)
		if err != nil {
			return nil, err
		}

		result.Paths = append(result.Paths, remote)
		result.UI.Images = append(result.UI.Images, domain.UIImage{
			Filename:  file,
			Subfolder: plan.Subfolder,
			Type:      constants.OutputType,
		})
		counter++
	}

	return result, nil
}

// saveOne encodes img to a private temp file and uploads it. The temp file is
// removed whether or not the upload succeeds.
func (s *Saver) saveOne(ctx context.Context, c *client.Client, img *tensor.Tensor, remote string, text []imageio.TextChunk) (_ string, err error) {
	raster, err := imageio.TensorToRaster(img)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.tempDir, 0700); err != nil {
		return "", domain.Errorf(domain.ErrIO, "failed to create temp dir %s: %v", s.tempDir, err)
	}
	tempPath := filepath.Join(s.tempDir, uuid.NewString()+".png")

	defer func() {
		if rmErr := os.Remove(tempPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, domain.Errorf(domain.ErrIO, "failed to remove temp file: %v", rmErr))
		}
	}()

	if err := imageio.WritePNGFile(tempPath, raster, constants.PNGCompressionLevel, text); err != nil {
		return "", err
	}

	return c.UploadFile(ctx, tempPath, remote)
}

func pngText(prompt string, extra map[string]string) []imageio.TextChunk {
	var chunks []imageio.TextChunk
	if prompt != "" {
		chunks = append(chunks, imageio.TextChunk{Keyword: "prompt", Text: prompt})
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		chunks = append(chunks, imageio.TextChunk{Keyword: k, Text: extra[k]})
	}
	return chunks
}
