package model

// Mode enumerates the three step modes an OML step may declare.
type Mode string

const (
	ModeRead      Mode = "read"
	ModeWrite     Mode = "write"
	ModeTransform Mode = "transform"
)

// Document is the parsed, not-yet-validated OML pipeline description.
type Document struct {
	OMLVersion string         `yaml:"oml_version"`
	Name       string         `yaml:"name"`
	Profile    string         `yaml:"profile,omitempty"`
	Steps      []Step         `yaml:"steps"`

	// Raw keeps the original top-level key set (including any forbidden
	// legacy keys) so the structural validator can report exactly what was
	// present without re-parsing the source bytes.
	Raw map[string]any `yaml:"-"`
}

// Step is one entry of an OML document's steps list.
type Step struct {
	ID        string         `yaml:"id"`
	Component string         `yaml:"component"`
	Mode      Mode           `yaml:"mode"`
	Config    map[string]any `yaml:"config"`
	Needs     []string       `yaml:"needs,omitempty"`
	Inputs    map[string]string `yaml:"inputs,omitempty"`
}

// ForbiddenTopLevelKeys lists the legacy keys an OML document must not
// carry at the top level.
var ForbiddenTopLevelKeys = []string{"version", "connectors", "tasks", "outputs"}

// RequiredOMLVersion is the only accepted value of oml_version in v0.1.
const RequiredOMLVersion = "0.1.0"
