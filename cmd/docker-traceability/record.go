package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/auto-dns/docker-traceability/internal/domain"
)

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a reference run for a single container or image",
	}
	cmd.AddCommand(
		newRecordTypeCmd("container", domain.RunTypeContainer),
		newRecordTypeCmd("image", domain.RunTypeImage),
	)
	return cmd
}

func newRecordTypeCmd(use string, runType domain.RunType) *cobra.Command {
	var (
		name      string
		timestamp string
	)
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Record a reference run for a %s", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := parseTimestamp(timestamp)
			if err != nil {
				return err
			}
			return withApplication(cmd, func(ctx context.Context, a application) error {
				run, err := a.Record(ctx, runType, args[0], name, ts)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), run.Render())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "optional name of the "+use)
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "creation time (RFC3339, default now)")
	return cmd
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --timestamp %q: %w", s, err)
	}
	return ts, nil
}
