package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/frames/internal/api"
	"github.com/pbaille/frames/internal/report"
	"github.com/pbaille/frames/internal/timefmt"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	var (
		from     string
		to       string
		projects []string
		tags     []string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report closed frames in a date range",
		Long: `Report closed frames whose start date is on or after --from and whose stop
date is on or before --to. Dates are YYYY-MM-DD; the range defaults to the
last seven days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			fromDate, toDate, err := reportRange(from, to, a.tracker.Now().In(a.cfg.Location()))
			if err != nil {
				return err
			}

			rep, err := report.Build(a.store, a.cfg.Formatter()).
				From(fromDate).
				To(toDate).
				ForProject(projects...).
				ForTag(tags...).
				Create()
			if err != nil {
				return err
			}

			return rep.Render(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVarP(&from, "from", "f", "", "first date, YYYY-MM-DD (default 6 days before --to)")
	cmd.Flags().StringVarP(&to, "to", "t", "", "last date, YYYY-MM-DD (default today)")
	cmd.Flags().StringArrayVarP(&projects, "project", "p", nil, "only this project (repeatable)")
	cmd.Flags().StringArrayVarP(&tags, "tag", "T", nil, "only frames with this tag (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "o", report.FormatTable.String(),
		"output format: "+strings.Join(report.FormatNames(), ", "))
	return cmd
}

// reportRange resolves the --from/--to flags to calendar dates. today is the
// current instant in the display timezone.
func reportRange(from, to string, today time.Time) (time.Time, time.Time, error) {
	toDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if to != "" {
		var err error
		if toDate, err = timefmt.ParseDate(to); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	fromDate := toDate.AddDate(0, 0, -6)
	if from != "" {
		var err error
		if fromDate, err = timefmt.ParseDate(from); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	return fromDate, toDate, nil
}

func projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			projects, err := a.store.ListProjects()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects yet. Use 'frames start' to create one.")
				return nil
			}
			for _, p := range projects {
				fmt.Fprintln(out, p.Name)
			}
			return nil
		},
	}
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List all tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tags, err := a.store.ListTags()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tags) == 0 {
				fmt.Fprintln(out, "No tags yet. Use 'frames tag' to add one.")
				return nil
			}
			for _, t := range tags {
				fmt.Fprintln(out, t.Name)
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.New(a.store, a.tracker, a.cfg.Formatter(), a.logger.With("component", "api"), addr)
			return server.Run()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
