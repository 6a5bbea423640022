// Package oml parses and validates OML pipeline documents, implementing
// the three-layer validator (structural, semantic, pre-runtime) the
// compiler requires before it will compile a document. Grounded on the
// teacher's internal/validation.RunValidations result-collection shape
// and internal/config's cycle detector, generalized from dotfile steps
// to OML needs references. A step's inputs mapping is not checked: its
// references are neither resolved nor added to the dependency graph.
package oml

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/osiris-data/osiris/internal/model"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// Parse reads and unmarshals an OML document from path, also capturing
// its raw top-level key set so the structural validator can see
// forbidden legacy keys the typed Document struct would otherwise drop
// silently.
func Parse(path string) (model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, streamyerrors.NewParseError(path, 0, err)
	}

	var doc model.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.Document{}, streamyerrors.NewParseError(path, 0, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return model.Document{}, streamyerrors.NewParseError(path, 0, err)
	}
	doc.Raw = raw

	return doc, nil
}
