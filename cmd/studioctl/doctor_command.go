package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-studio/internal/config"
	"github.com/heimdex/heimdex-studio/internal/db"
	"github.com/heimdex/heimdex-studio/internal/studio"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the library database and stored scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDatabase(cmd, func(cfg *config.EnvConfig, database *db.DB, logger *slog.Logger) error {
				c := cmd.Context()
				out := cmd.OutOrStdout()

				ok, err := database.Integrity(c)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("library database %s failed integrity check", cfg.DBPath())
				}
				fmt.Fprintf(out, "Database:  %s (ok)\n", cfg.DBPath())

				svc := studio.NewService(studio.ServiceConfig{
					Repository: studio.NewRepository(database.Conn()),
					Logger:     logger,
				})
				return reportScripts(c, cmd, svc)
			})
		},
	}
}

// reportScripts loads every script and lists the media fields that could not
// be restored from storage.
func reportScripts(c context.Context, cmd *cobra.Command, svc *studio.Service) error {
	out := cmd.OutOrStdout()
	recs, err := svc.ListScripts(c)
	if err != nil {
		return err
	}

	damaged := 0
	var stored int
	for _, r := range recs {
		doc, err := svc.Document(c, r.ID)
		if err != nil {
			fmt.Fprintf(out, "  %s: %v\n", r.ID, err)
			damaged++
			continue
		}
		stored += len(doc)
		for _, w := range svc.Warnings(r.ID) {
			fmt.Fprintf(out, "  %s: %s\n", r.ID, w.Error())
			damaged++
		}
	}
	fmt.Fprintf(out, "Scripts:   %d (%s stored)\n", len(recs), humanize.Bytes(uint64(stored)))
	if damaged > 0 {
		return fmt.Errorf("%d problem(s) found", damaged)
	}
	fmt.Fprintln(out, "No problems found")
	return nil
}
