package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osiris-data/osiris/internal/compiler"
)

func newCompileCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <pipeline.oml.yaml>",
		Short: "Validate and deterministically compile an OML pipeline to a fingerprinted manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*root)
			if err != nil {
				return err
			}

			doc, profile, err := parseAndValidate(a, args[0])
			if err != nil {
				return err
			}

			result, err := compiler.Compile(doc, a.Registry)
			if err != nil {
				return err
			}

			if err := compiler.Write(a.Layout, profile, result); err != nil {
				return err
			}

			a.Logger.Info("compiled pipeline", map[string]any{
				"pipeline":       result.Manifest.Pipeline.ID,
				"manifest_hash":  result.Manifest.Meta.ManifestHash,
				"manifest_short": result.Manifest.Meta.ManifestShort,
			})
			fmt.Printf("%s %s\n", result.Manifest.Meta.ManifestShort, result.Manifest.Meta.ManifestHash)
			return nil
		},
	}

	return cmd
}
