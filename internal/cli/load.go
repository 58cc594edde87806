package cli

import (
	"fmt"
	"os"

	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/imageio"
	"github.com/charliek/comfygcs/internal/nodes"
	"github.com/charliek/comfygcs/internal/ui"
	"github.com/spf13/cobra"
)

var (
	loadPrefix  string
	loadFile    string
	loadPreview string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run the load-image node",
	Long: `Download one image from the bucket and decode it into image and mask batches.

The first object under --prefix is loaded unless --file names one directly.
The object is staged under the staging directory (default: input/).
Use --preview to write the first decoded frame back out as a PNG.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadPrefix, "prefix", "", "object prefix (default: GCS_INPUT_DIR)")
	loadCmd.Flags().StringVar(&loadFile, "file", "", "load this object instead of the first match")
	loadCmd.Flags().StringVar(&loadPreview, "preview", "", "write the first decoded frame to this PNG file")
}

type loadOutput struct {
	Object     string `json:"object"`
	LocalPath  string `json:"local_path"`
	ImageShape []int  `json:"image_shape"`
	MaskShape  []int  `json:"mask_shape"`
	Preview    string `json:"preview,omitempty"`
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	out := GetOutput()

	prefix := loadPrefix
	if !cmd.Flags().Changed("prefix") {
		prefix = cfg.InputPrefix
	}

	if loadPreview != "" && fileExists(loadPreview) {
		if err := confirmOverwrite(loadPreview); err != nil {
			return err
		}
	}

	session := NewSession(ctx, cfg)
	defer session.Close()

	res, err := session.Loader.Load(ctx, nodes.LoadInputs{
		Prefix:   prefix,
		Filename: loadFile,
	})
	if err != nil {
		return err
	}

	result := loadOutput{
		Object:     res.Object,
		LocalPath:  res.LocalPath,
		ImageShape: res.Images.Shape,
		MaskShape:  res.Masks.Shape,
	}

	if loadPreview != "" {
		first, err := res.Images.Index(0)
		if err != nil {
			return err
		}
		raster, err := imageio.TensorToRaster(first)
		if err != nil {
			return err
		}
		if err := imageio.WritePNGFile(loadPreview, raster, constants.PNGCompressionLevel, nil); err != nil {
			return err
		}
		result.Preview = loadPreview
		out.Verbose("Wrote frame 0 of %d to %s", res.Images.Dim(0), loadPreview)
	}

	if out.IsJSON() {
		return out.JSON(result)
	}

	out.Status("Object", result.Object)
	out.Status("Staged at", result.LocalPath)
	out.Status("Image", ui.Shape(result.ImageShape))
	out.Status("Mask", ui.Shape(result.MaskShape))
	if result.Preview != "" {
		out.Status("Preview", result.Preview)
	}
	return nil
}

// confirmOverwrite asks before replacing an existing local file. Without a
// terminal the file is replaced silently.
func confirmOverwrite(path string) error {
	if !ui.CanPrompt() {
		return nil
	}

	ok, err := ui.NewPrompt().Confirm(fmt.Sprintf("%s exists. Overwrite?", path), false)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserCancelled
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
