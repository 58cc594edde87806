package nodes

import (
	"github.com/charliek/comfygcs/internal/config"
	"github.com/charliek/comfygcs/internal/constants"
)

// Node ids as the host knows them
const (
	LoadImageID = "LoadImageGCS"
	SaveImageID = "SaveImageGCS"
)

// Field is one declared node input
type Field struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Default   string `json:"default,omitempty"`
	Multiline bool   `json:"multiline,omitempty"`
}

// InputTypes groups a node's inputs the way the host declares them
type InputTypes struct {
	Required []Field `json:"required"`
	Optional []Field `json:"optional,omitempty"`
	Hidden   []Field `json:"hidden,omitempty"`
}

// NodeDef is the registration record for one node
type NodeDef struct {
	ID           string     `json:"id"`
	DisplayName  string     `json:"display_name"`
	Category     string     `json:"category"`
	Function     string     `json:"function"`
	InputTypes   InputTypes `json:"input_types"`
	ReturnTypes  []string   `json:"return_types"`
	ReturnNames  []string   `json:"return_names,omitempty"`
	OutputNode   bool       `json:"output_node"`
	OutputIsList []bool     `json:"output_is_list,omitempty"`
}

// Registry describes both nodes. Schema defaults come from cfg, which callers
// resolve once (see config.Resolve).
func Registry(cfg *config.Config) []NodeDef {
	return []NodeDef{
		{
			ID:          LoadImageID,
			DisplayName: "Load Image from GCS",
			Category:    constants.NodeCategory,
			Function:    "load_image",
			InputTypes: InputTypes{
				Required: []Field{
					{Name: "gcs_input_prefix", Type: "STRING", Default: cfg.InputPrefix},
					{Name: "gcs_bucket", Type: "STRING", Default: cfg.Bucket},
					{Name: "gcs_project", Type: "STRING", Default: cfg.Project},
				},
				Optional: []Field{
					{Name: "google_application_credentials", Type: "STRING", Default: cfg.CredentialsFile},
					{Name: "filename", Type: "STRING"},
				},
			},
			ReturnTypes: []string{"IMAGE", "MASK"},
		},
		{
			ID:          SaveImageID,
			DisplayName: "Save Image to GCS",
			Category:    constants.NodeCategory,
			Function:    "save_images",
			InputTypes: InputTypes{
				Required: []Field{
					{Name: "gcs_bucket", Type: "STRING", Default: cfg.Bucket},
					{Name: "gcs_project", Type: "STRING", Default: cfg.Project},
					{Name: "images", Type: "IMAGE"},
					{Name: "filename_prefix", Type: "STRING", Default: constants.SchemaFilenamePrefix},
				},
				Optional: []Field{
					{Name: "google_application_credentials_file", Type: "STRING", Default: cfg.CredentialsFile},
				},
				Hidden: []Field{
					{Name: "prompt", Type: "PROMPT"},
					{Name: "extra_pnginfo", Type: "EXTRA_PNGINFO"},
				},
			},
			ReturnTypes:  []string{"STRING"},
			ReturnNames:  []string{"gcs_image_paths"},
			OutputNode:   true,
			OutputIsList: []bool{true},
		},
	}
}

// ClassMappings indexes the registry by node id
func ClassMappings(defs []NodeDef) map[string]NodeDef {
	m := make(map[string]NodeDef, len(defs))
	for _, d := range defs {
		m[d.ID] = d
	}
	return m
}

// DisplayNameMappings maps node id to the name shown in the host UI
func DisplayNameMappings(defs []NodeDef) map[string]string {
	m := make(map[string]string, len(defs))
	for _, d := range defs {
		m[d.ID] = d.DisplayName
	}
	return m
}
