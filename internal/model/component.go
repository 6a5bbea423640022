package model

// OverridePolicy describes how a connection field may be overridden by a
// step's own config.
type OverridePolicy string

const (
	OverrideAllowed   OverridePolicy = "allowed"
	OverrideForbidden OverridePolicy = "forbidden"
	OverrideWarning   OverridePolicy = "warning"
)

// ConnectionField declares the override policy for one connection-backed
// field of a component.
type ConnectionField struct {
	Name     string         `yaml:"name"`
	Override OverridePolicy `yaml:"override"`
}

// RuntimeBinding names the driver a component executes through.
type RuntimeBinding struct {
	Driver string `yaml:"driver"`
}

// ComponentSpec is the on-disk description of a pipeline component: what
// modes it supports, what its config schema looks like, which config
// fields carry secrets, and which driver implements it.
type ComponentSpec struct {
	Name               string            `yaml:"name"`
	Version            string            `yaml:"version"`
	Modes              []Mode            `yaml:"modes"`
	Capabilities        map[string]bool   `yaml:"capabilities,omitempty"`
	ConfigSchema       map[string]any    `yaml:"configSchema"`
	Secrets            []string          `yaml:"secrets,omitempty"`
	ConnectionFields   []ConnectionField `yaml:"x-connection-fields,omitempty"`
	Runtime            RuntimeBinding    `yaml:"x-runtime"`

	// SourcePath records the file the Component Registry loaded this spec
	// from; it is not part of the YAML document itself.
	SourcePath string `yaml:"-"`
}

// SupportsMode reports whether the spec declares support for mode m.
func (c ComponentSpec) SupportsMode(m Mode) bool {
	for _, candidate := range c.Modes {
		if candidate == m {
			return true
		}
	}
	return false
}

// FieldOverride returns the override policy declared for a connection
// field, defaulting to OverrideAllowed when the field is not listed.
func (c ComponentSpec) FieldOverride(field string) OverridePolicy {
	for _, f := range c.ConnectionFields {
		if f.Name == field {
			return f.Override
		}
	}
	return OverrideAllowed
}
