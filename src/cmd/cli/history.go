package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"screen-ocr-overlay/src/history"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/runtimeinit"
)

const defaultListLimit = 50

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage copied OCR text",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List copied text, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *opts, func(ctx context.Context, s *history.Store) error {
				entries, err := s.List(ctx, limit)
				if err != nil {
					return err
				}
				printEntries(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", defaultListLimit, "Maximum entries to show (0 for all)")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return withStore(cmd.Context(), *opts, func(ctx context.Context, s *history.Store) error {
				if err := s.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %d\n", id)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *opts, func(ctx context.Context, s *history.Store) error {
				n, err := s.DeleteAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
				return nil
			})
		},
	}

	var days int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *opts, func(ctx context.Context, s *history.Store) error {
				n, err := s.Prune(ctx, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries older than %d days\n", n, days)
				return nil
			})
		},
	}
	prune.Flags().IntVar(&days, "days", int(history.DefaultRetention/(24*time.Hour)), "Retention window in days")

	cmd.AddCommand(list, del, clearCmd, prune)
	return cmd
}

func withStore(ctx context.Context, opts cliOptions, fn func(context.Context, *history.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions: opts.loadOptions(),
		Verbose:     opts.verbose,
		History:     true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt.History)
}

func printEntries(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history entries")
		return
	}
	idColor := color.New(color.FgYellow)
	timeColor := color.New(color.FgCyan)
	for _, e := range entries {
		idColor.Fprintf(w, "%6d", e.ID)
		fmt.Fprint(w, "  ")
		timeColor.Fprint(w, e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  %s\n", logutil.Preview(e.Content))
	}
}
