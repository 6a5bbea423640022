package model

// Connection is one resolved alias within a connection family, as declared
// in the connections file. Field values may carry ${ENV} placeholders that
// are resolved at execution time by the Connection Resolver.
type Connection struct {
	Family  string            `yaml:"-"`
	Alias   string            `yaml:"-"`
	Fields  map[string]string `yaml:",inline"`
	Default bool              `yaml:"default,omitempty"`
}

// ConnectionsFile is the parsed top-level shape of a connections document.
type ConnectionsFile struct {
	Connections map[string]map[string]Connection `yaml:"connections"`
}

// ResolvedConnection is the fully materialized, in-memory-only credential
// mapping produced by the resolver for a single step invocation. It is
// never persisted to disk except when a remote sandbox transport requires
// it, and even then only for the duration of that run's upload package.
type ResolvedConnection struct {
	Family      string
	Alias       string
	Fields      map[string]string
	Diagnostics []string
}

// Redacted returns a copy of the resolved connection with any field the
// secret set identifies replaced by the mask, preserving unresolved
// ${...} placeholders verbatim.
func (r ResolvedConnection) Redacted(isSecret func(field string) bool) ResolvedConnection {
	out := ResolvedConnection{
		Family:      r.Family,
		Alias:       r.Alias,
		Diagnostics: r.Diagnostics,
		Fields:      make(map[string]string, len(r.Fields)),
	}
	for k, v := range r.Fields {
		if isPlaceholder(v) {
			out.Fields[k] = v
			continue
		}
		if isSecret(k) {
			out.Fields[k] = MaskedValue
			continue
		}
		out.Fields[k] = v
	}
	return out
}

// MaskedValue is substituted for any redacted secret value.
const MaskedValue = "***MASKED***"

func isPlaceholder(v string) bool {
	return len(v) >= 3 && v[0] == '$' && v[1] == '{' && v[len(v)-1] == '}'
}
