package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osiris-data/osiris/internal/oml"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pipeline.oml.yaml>",
		Short: "Run the three-layer OML validator without compiling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*root)
			if err != nil {
				return err
			}

			doc, err := oml.Parse(args[0])
			if err != nil {
				return err
			}

			result := oml.Validate(doc, a.Registry, a.Resolver)
			for _, w := range result.Warnings {
				fmt.Printf("warning [%s]: %s\n", w.Code, w.Message)
			}
			if !result.OK {
				for _, e := range result.Errors {
					fmt.Printf("error [%s]: %s\n", e.Code, e.Message)
				}
				first := result.Errors[0]
				return streamyerrors.NewValidationError(first.Code, first.Message, nil)
			}

			fmt.Println("ok")
			return nil
		},
	}

	return cmd
}
