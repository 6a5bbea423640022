// Package connection implements the Connection Resolver: it loads the
// connections file, resolves ${ENV} placeholders and symbolic
// @family.alias references, enforces per-field override policy, and
// produces redacted copies for any display path. Grounded on the
// teacher's config env-handling layer and pkg/errors typed-error idiom;
// placeholder substitution itself is stdlib (no pack library implements
// ${VAR}-inside-arbitrary-config-value expansion).
package connection

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/osiris-data/osiris/internal/model"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// Resolver holds the parsed connections file in memory, immutable after
// load per the process-wide singleton lifecycle the core mandates.
type Resolver struct {
	families map[string]map[string]model.Connection
}

// NewEmpty returns a Resolver with no connection families, for
// pipelines whose steps never reference a symbolic connection.
func NewEmpty() *Resolver {
	return &Resolver{families: map[string]map[string]model.Connection{}}
}

// Load parses a connections file from path.
func Load(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, streamyerrors.NewConnectionError("UnknownFamily", path, "", err)
	}

	var file model.ConnectionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, streamyerrors.NewConnectionError("UnknownFamily", path, "", err)
	}

	for family, aliases := range file.Connections {
		for alias, conn := range aliases {
			conn.Family = family
			conn.Alias = alias
			aliases[alias] = conn
		}
	}

	return &Resolver{families: file.Connections}, nil
}

// ParseRef splits a symbolic "@family.alias" reference.
func ParseRef(ref string) (family, alias string, err error) {
	trimmed := strings.TrimPrefix(ref, "@")
	parts := strings.SplitN(trimmed, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", streamyerrors.NewConnectionError("UnknownFamily", ref, "", fmt.Errorf("malformed reference %q, expected @family.alias", ref))
	}
	return parts[0], parts[1], nil
}

// Resolve turns a symbolic connection reference into a fully-resolved
// credential mapping, applying the component's override policy to any
// fields the step config also specifies and substituting ${ENV}
// placeholders from the process environment.
func (r *Resolver) Resolve(ref string, stepConfig map[string]string, spec model.ComponentSpec) (model.ResolvedConnection, error) {
	family, alias, err := ParseRef(ref)
	if err != nil {
		return model.ResolvedConnection{}, err
	}

	aliases, ok := r.families[family]
	if !ok {
		return model.ResolvedConnection{}, streamyerrors.NewConnectionError("UnknownFamily", ref, "", fmt.Errorf("no connection family %q", family))
	}
	conn, ok := aliases[alias]
	if !ok {
		return model.ResolvedConnection{}, streamyerrors.NewConnectionError("UnknownAlias", ref, "", fmt.Errorf("no alias %q in family %q", alias, family))
	}

	resolved := model.ResolvedConnection{
		Family: family,
		Alias:  alias,
		Fields: make(map[string]string, len(conn.Fields)),
	}

	for field, value := range conn.Fields {
		expanded, err := expandPlaceholder(value)
		if err != nil {
			return model.ResolvedConnection{}, streamyerrors.NewConnectionError("MissingEnv", ref, field, err)
		}
		resolved.Fields[field] = expanded
	}

	for field, stepValue := range stepConfig {
		policy := spec.FieldOverride(field)
		switch policy {
		case model.OverrideForbidden:
			return model.ResolvedConnection{}, streamyerrors.NewConnectionError("ForbiddenOverride", ref, field,
				fmt.Errorf("step config may not override connection field %q", field))
		case model.OverrideWarning:
			resolved.Diagnostics = append(resolved.Diagnostics, fmt.Sprintf("step overrides connection field %q", field))
			resolved.Fields[field] = stepValue
		default: // allowed
			resolved.Fields[field] = stepValue
		}
	}

	return resolved, nil
}

// expandPlaceholder substitutes a single "${NAME}" placeholder from the
// process environment. A value that is not a placeholder is returned
// unchanged. An empty environment variable is treated as unset.
func expandPlaceholder(value string) (string, error) {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value, nil
	}
	name := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
	resolved, ok := os.LookupEnv(name)
	if !ok || resolved == "" {
		return "", fmt.Errorf("environment variable %q is unset", name)
	}
	return resolved, nil
}

// Redact produces a display-safe copy of a resolved connection, masking
// any field IsSecretField identifies while preserving unresolved
// placeholder strings verbatim.
func Redact(spec model.ComponentSpec, rc model.ResolvedConnection) model.ResolvedConnection {
	return rc.Redacted(func(field string) bool { return IsSecretField(spec, field) })
}
