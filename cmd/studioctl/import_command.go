package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/heimdex/heimdex-studio/internal/studio"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <script.yaml>",
		Short: "Create a script from a YAML segment list",
		Long: `Create a script from a YAML file of the form:

  title: Quarterly report
  aspect_ratio: "9:16"
  segments:
    - narration: Revenue grew four percent.
      bullets: [Revenue, Growth]
    - narration: Margins held steady.
      mode: image`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readScriptFile(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *studio.Service) error {
				sc, err := svc.CreateScript(c, *in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %q as %s (%d segments)\n", sc.Title, sc.ID, len(sc.Segments))
				return nil
			})
		},
	}
}

func readScriptFile(path string) (*studio.NewScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var in studio.NewScript
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &in, nil
}
