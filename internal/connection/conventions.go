package connection

import (
	"strings"

	"github.com/osiris-data/osiris/internal/model"
)

// fallbackSecretNames is the fixed list of conventional secret field names
// used when a component spec does not explicitly declare a field as a
// secret pointer or a forbidden override. This resolves the "secret
// detection fallback list" open question as a fixed, documented set
// rather than a per-call-site guess.
var fallbackSecretNames = map[string]struct{}{
	"password":         {},
	"token":             {},
	"api_key":           {},
	"apikey":            {},
	"secret":            {},
	"key":               {},
	"access_key":        {},
	"private_key":       {},
	"service_role_key":  {},
	"client_secret":     {},
	"auth_token":        {},
}

// IsSecretField reports whether field should be masked for display,
// checking sources in the precedence order the spec names: explicit
// secrets pointers, forbidden-override policy, then the fallback list.
func IsSecretField(spec model.ComponentSpec, field string) bool {
	for _, pointer := range spec.Secrets {
		if pointerMatchesField(pointer, field) {
			return true
		}
	}
	if spec.FieldOverride(field) == model.OverrideForbidden {
		return true
	}
	_, ok := fallbackSecretNames[strings.ToLower(field)]
	return ok
}

func pointerMatchesField(pointer, field string) bool {
	trimmed := strings.TrimPrefix(pointer, "/")
	return trimmed == field
}
