package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/frames/internal/domain"
	"github.com/pbaille/frames/internal/timefmt"
	"github.com/pbaille/frames/internal/tracker"
	"github.com/spf13/cobra"
)

// parseAt resolves an optional --at value; nil means now
func (a *app) parseAt(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := timefmt.ParseInstant(value, a.cfg.Location(), a.tracker.Now())
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func startCmd() *cobra.Command {
	var (
		at       string
		tags     []string
		estimate string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "start [project]",
		Short: "Start tracking a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			startedAt, err := a.parseAt(at)
			if err != nil {
				return err
			}

			var est time.Duration
			if estimate != "" {
				if est, err = timefmt.ParseInterval(estimate); err != nil {
					return err
				}
			}

			frame, err := a.tracker.StartWith(args[0], startedAt, tracker.FrameDetails{
				Tags:     tags,
				Notes:    notes,
				Estimate: est,
			})
			if err != nil {
				return err
			}

			f := a.cfg.Formatter()
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s%s at %s (id %s)\n",
				frame.Project.Name, tagSuffix(frame.TagNames()), f.Time(frame.StartedAt), shortID(frame.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "start time (default now)")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "tag to attach (repeatable)")
	cmd.Flags().StringVarP(&estimate, "estimate", "e", "", "estimated duration, e.g. \"1h 30m\"")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "notes for the frame")
	return cmd
}

func stopCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "stop [project]",
		Short: "Stop active frames, or only the one of the given project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			project := ""
			if len(args) == 1 {
				project = args[0]
			}

			frames, err := a.store.ActiveFrames(project)
			if err != nil {
				return err
			}
			if len(frames) == 0 {
				return errors.New("no project started")
			}

			stoppedAt, err := a.parseAt(at)
			if err != nil {
				return err
			}

			f := a.cfg.Formatter()
			for i := range frames {
				frame := &frames[i]
				if err := a.tracker.Stop(frame, stoppedAt); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s%s, started %s (%s elapsed)\n",
					frame.Project.Name, tagSuffix(frame.TagNames()),
					f.DateTime(frame.StartedAt), f.Duration(frame.Elapsed(*frame.StoppedAt)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "stop time (default now)")
	return cmd
}

func restartCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "restart [frame-id]",
		Short: "Start a new frame with the project and tags of a previous one",
		Long:  "Start a new frame with the project and tags of a previous one. Defaults to the last stopped frame.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var source *domain.Frame
			if len(args) == 1 {
				source, err = a.store.FindFrame(args[0])
			} else {
				source, err = a.tracker.LatestClosed()
			}
			if err != nil {
				return err
			}

			startedAt, err := a.parseAt(at)
			if err != nil {
				return err
			}

			frame, err := a.tracker.Restart(source, startedAt)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Restarted %s%s at %s (id %s)\n",
				frame.Project.Name, tagSuffix(frame.TagNames()), a.cfg.Formatter().Time(frame.StartedAt), shortID(frame.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "start time (default now)")
	return cmd
}

func addCmd() *cobra.Command {
	var (
		from     string
		to       string
		interval string
		tags     []string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "add [project]",
		Short: "Record a frame for past work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			loc, now := a.cfg.Location(), a.tracker.Now()
			start, err := timefmt.ParseInstant(from, loc, now)
			if err != nil {
				return err
			}

			// --interval wins over --to
			stop := now
			switch {
			case interval != "":
				d, err := timefmt.ParseInterval(interval)
				if err != nil {
					return err
				}
				stop = start.Add(d)
			case to != "":
				if stop, err = timefmt.ParseInstant(to, loc, now); err != nil {
					return err
				}
			}

			frame, err := a.tracker.AddWith(args[0], start, stop, tracker.FrameDetails{
				Tags:  tags,
				Notes: notes,
			})
			if err != nil {
				return err
			}

			f := a.cfg.Formatter()
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s%s from %s to %s (id %s)\n",
				frame.Project.Name, tagSuffix(frame.TagNames()),
				f.DateTime(frame.StartedAt), f.DateTime(*frame.StoppedAt), shortID(frame.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start time")
	cmd.Flags().StringVar(&to, "to", "", "end time (default now)")
	cmd.Flags().StringVar(&interval, "interval", "", "duration instead of an end time, e.g. \"45m\" (overrides --to)")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "tag to attach (repeatable)")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "notes for the frame")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func tagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag [frame-id] [tag...]",
		Short: "Attach tags to a frame",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			frame, err := a.store.FindFrame(args[0])
			if err != nil {
				return err
			}
			if err := a.tracker.AddTags(frame, args[1:]...); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s%s\n", shortID(frame.ID), tagSuffix(frame.TagNames()))
			return nil
		},
	}
}

func noteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note [frame-id] [text]",
		Short: "Set the notes of a frame",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			frame, err := a.store.FindFrame(args[0])
			if err != nil {
				return err
			}
			if err := a.tracker.AddNotes(frame, strings.Join(args[1:], " ")); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated notes of %s\n", shortID(frame.ID))
			return nil
		},
	}
}

func estimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [frame-id] [duration]",
		Short: "Set the estimated duration of a frame",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := timefmt.ParseInterval(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			frame, err := a.store.FindFrame(args[0])
			if err != nil {
				return err
			}
			if err := a.tracker.SetEstimate(frame, est); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Estimated %s at %s\n", shortID(frame.ID), a.cfg.Formatter().Duration(est))
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show active frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			frames, err := a.tracker.Active()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(frames) == 0 {
				fmt.Fprintln(out, "No project started.")
				return nil
			}

			f, now := a.cfg.Formatter(), a.tracker.Now()
			for _, frame := range frames {
				fmt.Fprintf(out, "%s  %s%s started %s (%s elapsed)\n",
					shortID(frame.ID), frame.Project.Name, tagSuffix(frame.TagNames()),
					f.DateTime(frame.StartedAt), f.Duration(frame.Elapsed(now)))
			}
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List recently stopped frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			frames, err := a.store.RecentFrames(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(frames) == 0 {
				fmt.Fprintln(out, "No frames yet. Use 'frames start' to create one.")
				return nil
			}

			f := a.cfg.Formatter()
			for _, frame := range frames {
				fmt.Fprintf(out, "%s  %s  %s - %s  %s  %s%s\n",
					shortID(frame.ID), f.Date(frame.StartedAt),
					f.Time(frame.StartedAt), f.Time(*frame.StoppedAt),
					f.Duration(frame.Elapsed(*frame.StoppedAt)),
					frame.Project.Name, tagSuffix(frame.TagNames()))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of frames to show")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [frame-id]",
		Short: "Delete a frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			frame, err := a.store.FindFrame(args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteFrame(frame.ID); err != nil {
				return err
			}
			a.logger.Info("frame deleted", "frame_id", frame.ID, "project", frame.Project.Name)

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted frame %s (%s)\n", shortID(frame.ID), frame.Project.Name)
			return nil
		},
	}
}
