package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchctl/internal/store"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var session string
	var sessions bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the diagnostics journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Journal.Path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(out, "No journal at %s (enable it with --journal or [journal] enabled = true)\n", cfg.Journal.Path)
				return nil
			}

			st, err := store.New(cfg.Journal.Path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer st.Close()

			if sessions {
				return printSessions(cmd, st, limit)
			}

			var events []*store.Event
			if session != "" {
				events, err = st.Events().ListBySession(session)
			} else {
				events, err = st.Events().Recent(limit)
			}
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No events recorded")
				return nil
			}

			rows := make([][]string, 0, len(events))
			for _, e := range events {
				rows = append(rows, []string{
					e.CreatedAt.Local().Format(time.DateTime),
					string(e.Kind),
					e.Channel,
					fmt.Sprintf("%.2f", e.Level),
					e.Message,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Time", "Kind", "Channel", "Level", "Message"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show")
	cmd.Flags().StringVar(&session, "session", "", "Only show events from this session")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "List sessions instead of events")
	return cmd
}

func printSessions(cmd *cobra.Command, st *store.Store, limit int) error {
	list, err := st.Sessions().List(limit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, s := range list {
		ended := "running"
		if s.EndedAt != nil {
			ended = s.EndedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			s.ID,
			s.StartedAt.Local().Format(time.DateTime),
			ended,
			fmt.Sprintf("%dx%d", s.FrameWidth, s.FrameHeight),
			yesNo(s.VolumeEnabled),
			yesNo(s.BrightnessEnabled),
			s.ExitReason,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Session", "Started", "Ended", "Frame", "Volume", "Brightness", "Exit"},
		rows, nil,
	))
	return nil
}
