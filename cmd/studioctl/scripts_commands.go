package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-studio/internal/script"
	"github.com/heimdex/heimdex-studio/internal/studio"
)

const narrationPreviewRunes = 48

func newScriptsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scripts",
		Short: "List scripts in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *studio.Service) error {
				recs, err := svc.ListScripts(c)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(out, "No scripts")
					return nil
				}

				rows := make([][]string, 0, len(recs))
				for _, r := range recs {
					rows = append(rows, []string{
						r.ID,
						r.Title,
						strconv.Itoa(r.SegmentCount),
						strconv.Itoa(r.ApprovedCount),
						strconv.FormatInt(r.Version, 10),
						humanize.Time(r.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Segments", "Approved", "Version", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "segments <script-id>",
		Short: "Show segment approval state for a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *studio.Service) error {
				sc, err := svc.GetScript(c, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderSegments(sc, shouldColorize(out)))
				if warnings := svc.Warnings(sc.ID); len(warnings) > 0 {
					fmt.Fprintf(out, "%d media field(s) could not be restored:\n", len(warnings))
					for _, w := range warnings {
						fmt.Fprintf(out, "  - %s\n", w.Error())
					}
				}
				return nil
			})
		},
	}
}

func renderSegments(sc *script.Script, colorize bool) string {
	eligible := script.Eligible(sc)
	rows := make([][]string, 0, len(sc.Segments))
	for i := range sc.Segments {
		seg := &sc.Segments[i]
		audio := "-"
		if seg.Audio != nil {
			audio = colorStatus(string(seg.Audio.Status), colorize)
		}
		inAssembly := "no"
		if slices.Contains(eligible, seg.ID) {
			inAssembly = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			shortID(seg.ID),
			string(seg.Visual.Mode),
			colorStatus(string(seg.Visual.Status), colorize),
			audio,
			inAssembly,
			truncate(seg.Narration, narrationPreviewRunes),
		})
	}
	return renderTable(
		[]string{"#", "Segment", "Mode", "Visual", "Audio", "Eligible", "Narration"},
		rows,
		[]columnAlignment{alignRight},
	) + fmt.Sprintf("\n%s: %d of %d segments eligible", sc.Title, len(eligible), len(sc.Segments))
}

func newRequestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "request <script-id>",
		Short: "Print the assembly request the renderer would receive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *studio.Service) error {
				req, err := svc.BuildRequest(c, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(req)
			})
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
