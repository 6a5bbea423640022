package main

import (
	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/oml"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// parseAndValidate parses the OML document at path and runs the
// three-layer validator, returning a typed ValidationError (exit code 3)
// on any L1/L2/L3 finding. The resolved profile is the document's own
// profile field when set, else the process-wide --profile/OSIRIS_PROFILE
// value.
func parseAndValidate(a *app, path string) (model.Document, string, error) {
	doc, err := oml.Parse(path)
	if err != nil {
		return model.Document{}, "", err
	}

	result := oml.Validate(doc, a.Registry, a.Resolver)
	if !result.OK {
		first := result.Errors[0]
		return model.Document{}, "", streamyerrors.NewValidationError(first.Code, first.Message, nil)
	}

	profile := doc.Profile
	if profile == "" {
		profile = a.Config.Profile
	}
	return doc, profile, nil
}
