package session

import "github.com/osiris-data/osiris/internal/model"

// NewRedactor builds the single redaction function a session threads
// through every output path (events, metrics, run record, AIOP). isSecret
// is consulted with the ComponentSpec of the step the value belongs to,
// so precedence sources that are per-component (explicit secrets
// pointers, forbidden-override fields) can fire alongside the fixed
// fallback name list. A value is masked when isSecret reports true for
// its field name, unless the value is a verbatim unresolved ${...}
// placeholder.
func NewRedactor(isSecret func(spec model.ComponentSpec, field string) bool) Redactor {
	return func(spec model.ComponentSpec, field, value string) string {
		if isSecret == nil || !isSecret(spec, field) {
			return value
		}
		if isPlaceholder(value) {
			return value
		}
		return model.MaskedValue
	}
}

func isPlaceholder(v string) bool {
	return len(v) >= 3 && v[0] == '$' && v[1] == '{' && v[len(v)-1] == '}'
}
