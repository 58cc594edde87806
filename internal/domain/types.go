package domain

import "path"

// Params identifies the storage session a node invocation wants to use.
// Empty fields mean "whatever the shared session is bound to".
type Params struct {
	// Bucket is the target bucket name
	Bucket string `json:"bucket"`
	// Project is the cloud project id (optional)
	Project string `json:"project,omitempty"`
	// CredentialsPath is a service account JSON file (optional, ADC otherwise)
	CredentialsPath string `json:"credentials_path,omitempty"`
}

// IsZero reports whether no parameter was supplied
func (p Params) IsZero() bool {
	return p == Params{}
}

// SavePathPlan describes where a batch of saved images goes
type SavePathPlan struct {
	// Folder is the remote folder objects are written under
	Folder string `json:"folder"`
	// Filename is the filename stem, "{prefix}_{width}x{height}"
	Filename string `json:"filename"`
	// Counter is the first per-image counter value
	Counter int `json:"counter"`
	// Subfolder is reported to the UI; always empty
	Subfolder string `json:"subfolder"`
	// Prefix echoes the requested filename prefix
	Prefix string `json:"prefix"`
}

// UIImage is the per-image metadata handed back to the host UI
type UIImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// ObjectPath joins a folder and a filename into a bucket-relative object name
func ObjectPath(folder, file string) string {
	if folder == "" {
		return file
	}
	return path.Join(folder, file)
}
