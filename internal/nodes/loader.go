// Package nodes implements the load and save graph nodes and the table the
// host uses to register them.
package nodes

import (
	"context"
	"path"
	"strings"

	"github.com/charliek/comfygcs/internal/client"
	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/imageio"
	"github.com/charliek/comfygcs/internal/pathutil"
	"github.com/charliek/comfygcs/internal/tensor"
	"github.com/rs/zerolog"
)

// LoadInputs are the per-call inputs of the load node
type LoadInputs struct {
	Params domain.Params
	// Prefix selects candidates; the first listed object is loaded. Listings
	// are reused while the prefix stays the same.
	Prefix string
	// Filename names the object directly and skips listing. A name without a
	// folder is joined to Prefix.
	Filename string
}

// LoadResult is what the load node hands back to the graph
type LoadResult struct {
	// Images is [B,H,W,3] with samples in [0,1]
	Images *tensor.Tensor
	// Masks is [B,H,W], or [B,64,64] zeros when the source had no alpha
	Masks *tensor.Tensor
	// Object is the bucket-relative name that was loaded
	Object string
	// LocalPath is where the object was staged
	LocalPath string
}

// Loader is the load-image node
type Loader struct {
	provider   *client.Provider
	stagingDir string
	log        zerolog.Logger
}

// NewLoader creates a loader that stages downloads under stagingDir
func NewLoader(provider *client.Provider, stagingDir string, log zerolog.Logger) *Loader {
	if stagingDir == "" {
		stagingDir = constants.DefaultStagingDir
	}
	return &Loader{
		provider:   provider,
		stagingDir: stagingDir,
		log:        log,
	}
}

// Load downloads one image and converts it into image and mask batches
func (l *Loader) Load(ctx context.Context, in LoadInputs) (*LoadResult, error) {
	c, err := l.provider.Get(ctx, in.Params)
	if err != nil {
		return nil, err
	}

	object, err := resolveObject(ctx, c, in)
	if err != nil {
		return nil, err
	}
	l.log.Info().Str("object", object).Msg("loading image")

	localPath, err := pathutil.StagingPath(l.stagingDir, object)
	if err != nil {
		return nil, err
	}

	if _, err := c.DownloadFile(ctx, object, localPath); err != nil {
		return nil, err
	}

	frames, err := imageio.DecodeFile(localPath)
	if err != nil {
		return nil, err
	}

	images, masks, err := imageio.FramesToTensors(frames)
	if err != nil {
		return nil, err
	}

	l.log.Debug().
		Str("object", object).
		Stringer("images", images).
		Stringer("masks", masks).
		Msg("decoded image")

	return &LoadResult{
		Images:    images,
		Masks:     masks,
		Object:    object,
		LocalPath: localPath,
	}, nil
}

func resolveObject(ctx context.Context, c *client.Client, in LoadInputs) (string, error) {
	if in.Filename != "" {
		// A bare file name is looked up under the prefix, treated as a folder
		if in.Prefix != "" && path.Dir(in.Filename) == "." {
			return path.Join(in.Prefix, in.Filename), nil
		}
		return in.Filename, nil
	}

	// Unchanged inputs reuse the previous listing of this session
	names, err := c.MonitorInputAndListFiles(ctx, map[string]string{client.PrefixInput: in.Prefix})
	if err != nil {
		return "", err
	}
	for _, name := range names {
		// Folder placeholder objects
		if strings.HasSuffix(name, "/") {
			continue
		}
		return name, nil
	}
	return "", domain.Errorf(domain.ErrNoFilesFound, "nothing under %q in bucket %q", in.Prefix, c.Params().Bucket)
}
