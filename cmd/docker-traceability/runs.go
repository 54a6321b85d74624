package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/auto-dns/docker-traceability/internal/util"
)

type runView struct {
	Number    int64  `json:"number" yaml:"number"`
	Type      string `json:"type" yaml:"type"`
	DockerID  string `json:"docker_id" yaml:"docker_id"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Recorded  string `json:"recorded" yaml:"recorded"`
}

func toRunView(r domain.Run) runView {
	return runView{
		Number:    r.Number,
		Type:      string(r.Type),
		DockerID:  r.DockerID,
		Name:      r.Name,
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		Recorded:  r.Recorded.UTC().Format(time.RFC3339),
	}
}

func newRunsCmd() *cobra.Command {
	var (
		output   string
		typeFlag string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the recorded reference runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var runType domain.RunType
			if typeFlag != "" {
				rt, err := domain.ParseRunType(typeFlag)
				if err != nil {
					return err
				}
				runType = rt
			}
			return withApplication(cmd, func(ctx context.Context, a application) error {
				runs, err := a.ListRuns(ctx)
				if err != nil {
					return err
				}
				if runType != "" {
					runs = util.Filter(runs, func(r domain.Run) bool { return r.Type == runType })
				}
				return writeRuns(cmd.OutOrStdout(), runs, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	cmd.Flags().StringVar(&typeFlag, "type", "", "only list runs of this type (container or image)")
	return cmd
}

func writeRuns(w io.Writer, runs []domain.Run, format string) error {
	views := util.Map(runs, toRunView)
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NUMBER\tTYPE\tID\tNAME\tCREATED")
		for _, v := range views {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.Number, v.Type, domain.ShortID(v.DockerID), v.Name, v.Timestamp)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
