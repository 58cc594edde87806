package cli

import (
	"os"

	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/imageio"
	"github.com/charliek/comfygcs/internal/nodes"
	"github.com/charliek/comfygcs/internal/tensor"
	"github.com/charliek/comfygcs/internal/ui"
	"github.com/spf13/cobra"
)

var (
	savePrefix     string
	savePromptFile string
)

var saveCmd = &cobra.Command{
	Use:   "save <image>...",
	Short: "Run the save-image node",
	Long: `Decode local images into one batch and save it to the bucket as PNG.

Every frame of every file becomes one saved image, in argument order. All frames
must share the same dimensions. Objects are written to
<output_dir>/<prefix>_<width>x<height>_<counter>_.png with the counter starting
at 00000, so saving again with the same prefix and size overwrites.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVar(&savePrefix, "prefix", constants.SchemaFilenamePrefix, "filename prefix")
	saveCmd.Flags().StringVar(&savePromptFile, "prompt-file", "", "JSON file embedded as the PNG \"prompt\" text chunk")
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	out := GetOutput()

	images, err := decodeBatch(args)
	if err != nil {
		return err
	}
	out.Verbose("Decoded %d file(s) into a %s batch", len(args), ui.Shape(images.Shape))

	var prompt string
	if savePromptFile != "" {
		data, err := os.ReadFile(savePromptFile)
		if err != nil {
			return domain.Errorf(domain.ErrIO, "failed to read %s: %v", savePromptFile, err)
		}
		prompt = string(data)
	}

	session := NewSession(ctx, cfg)
	defer session.Close()

	res, err := session.Saver.Save(ctx, nodes.SaveInputs{
		Images:         images,
		FilenamePrefix: savePrefix,
		Prompt:         prompt,
	})
	if err != nil {
		return err
	}

	if out.IsJSON() {
		return out.JSON(res)
	}

	if err := out.PrintList("Saved:", res.Paths); err != nil {
		return err
	}
	for _, p := range res.Overwritten {
		out.Warn("replaced existing object %s", p)
	}
	out.Println()
	out.Success("%d image(s) saved to %s", len(res.Paths), cfg.Bucket)
	return nil
}

// decodeBatch decodes every file into one [B,H,W,3] batch
func decodeBatch(paths []string) (*tensor.Tensor, error) {
	batches := make([]*tensor.Tensor, 0, len(paths))
	for _, p := range paths {
		frames, err := imageio.DecodeFile(p)
		if err != nil {
			return nil, err
		}
		images, _, err := imageio.FramesToTensors(frames)
		if err != nil {
			return nil, err
		}
		batches = append(batches, images)
	}

	images, err := tensor.Concat(batches)
	if err != nil {
		return nil, domain.Errorf(domain.ErrInvalidArgs, "images must share dimensions: %v", err)
	}
	return images, nil
}
