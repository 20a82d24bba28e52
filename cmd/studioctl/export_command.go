package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-studio/internal/export"
	"github.com/heimdex/heimdex-studio/internal/studio"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var withEDL bool

	cmd := &cobra.Command{
		Use:   "export <script-id>",
		Short: "Write the approved video of a script to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := export.ValidateOutputDir(outputDir); err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *studio.Service) error {
				dl, err := svc.Export(c, args[0])
				if err != nil {
					return err
				}
				target := filepath.Join(outputDir, dl.Filename)
				if err := os.WriteFile(target, dl.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", target, err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Wrote %s (%s)\n", target, humanize.Bytes(uint64(len(dl.Data))))

				if !withEDL {
					return nil
				}
				tl, err := svc.TimelineEDL(c, args[0], 30)
				if err != nil {
					return err
				}
				edlPath := filepath.Join(outputDir, tl.Filename)
				if err := os.WriteFile(edlPath, []byte(tl.EDL), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", edlPath, err)
				}
				fmt.Fprintf(out, "Wrote %s (%d clips)\n", edlPath, tl.Clips)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory to write the video into")
	cmd.Flags().BoolVar(&withEDL, "edl", false, "Also write an EDL of the assembled timeline")
	return cmd
}
