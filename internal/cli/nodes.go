package cli

import (
	"sort"
	"strings"

	"github.com/charliek/comfygcs/internal/nodes"
	"github.com/spf13/cobra"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Print the node registration table",
	Long: `Print the nodes this plugin registers with the host, with their input
schemas. Input defaults are taken from the configuration and environment
(GCS_BUCKET, GCS_PROJECT, GCS_INPUT_DIR, GOOGLE_APPLICATION_CREDENTIALS).`,
	Args: cobra.NoArgs,
	RunE: runNodes,
}

func runNodes(cmd *cobra.Command, args []string) error {
	out := GetOutput()
	defs := nodes.Registry(cfg)

	if out.IsJSON() {
		return out.JSON(struct {
			Classes      map[string]nodes.NodeDef `json:"node_class_mappings"`
			DisplayNames map[string]string        `json:"node_display_name_mappings"`
		}{
			Classes:      nodes.ClassMappings(defs),
			DisplayNames: nodes.DisplayNameMappings(defs),
		})
	}

	rows := make([][]string, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, []string{d.ID, d.DisplayName, d.Category, strings.Join(d.ReturnTypes, ",")})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	out.Table([]string{"ID", "DISPLAY NAME", "CATEGORY", "RETURNS"}, rows)

	for _, d := range defs {
		out.Println()
		out.Printf("%s inputs:\n", d.ID)
		for _, group := range []struct {
			name   string
			fields []nodes.Field
		}{
			{"required", d.InputTypes.Required},
			{"optional", d.InputTypes.Optional},
			{"hidden", d.InputTypes.Hidden},
		} {
			for _, f := range group.fields {
				out.Printf("  %-36s %-14s %-9s %s\n", f.Name, f.Type, group.name, f.Default)
			}
		}
	}
	return nil
}
