package cli

import (
	"context"

	limitedio "github.com/charliek/comfygcs/internal/io"
	"github.com/charliek/comfygcs/internal/ui"
	"github.com/spf13/cobra"
)

var listLong bool

var listCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List objects in the bucket",
	Long: `List object names in the bucket, optionally under a prefix.

Without arguments, lists the configured input prefix (GCS_INPUT_DIR), or the
whole bucket when none is set. With --long, also shows size and last update.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "show size and update time")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	out := GetOutput()

	prefix := cfg.InputPrefix
	if len(args) == 1 {
		prefix = args[0]
	}

	session := NewSession(ctx, cfg)
	defer session.Close()

	if listLong {
		return listObjectsLong(ctx, session, out, prefix)
	}

	c, err := session.Client(ctx)
	if err != nil {
		return err
	}

	names, err := c.ListFiles(ctx, prefix)
	if err != nil {
		return err
	}

	if out.IsJSON() {
		return out.JSON(names)
	}

	if len(names) == 0 {
		out.Printf("No objects found under %q\n", prefix)
		return nil
	}
	for _, name := range names {
		out.Println(name)
	}
	return nil
}

func listObjectsLong(ctx context.Context, session *Session, out *ui.Output, prefix string) error {
	c, err := session.Client(ctx)
	if err != nil {
		return err
	}

	objects, err := c.Storage().ListWithMetadata(ctx, prefix)
	if err != nil {
		return err
	}

	if out.IsJSON() {
		return out.JSON(objects)
	}

	if len(objects) == 0 {
		out.Printf("No objects found under %q\n", prefix)
		return nil
	}

	rows := make([][]string, 0, len(objects))
	var total int64
	for _, obj := range objects {
		contentType := obj.ContentType
		if contentType == "" {
			contentType = "-"
		}
		rows = append(rows, []string{obj.Name, limitedio.FormatSize(obj.Size), contentType, ui.Timestamp(obj.Updated)})
		total += obj.Size
	}
	out.Table([]string{"NAME", "SIZE", "TYPE", "UPDATED"}, rows)

	out.Println()
	out.Printf("%d object(s), %s\n", len(objects), limitedio.FormatSize(total))
	return nil
}
