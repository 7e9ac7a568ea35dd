package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/float-query-service/internal/app"
	"github.com/couchcryptid/float-query-service/internal/config"
	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/couchcryptid/float-query-service/internal/observability"
	"github.com/couchcryptid/float-query-service/internal/pipeline"
)

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "floatq",
		Short:         "Ask natural-language questions about ARGO float profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newAskCmd(), newProfilesCmd(), newServeCmd())
	return root
}

// withApp loads configuration, builds the service and closes it when fn returns.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(ctx, cfg, observability.NewLogger(cfg), observability.NewMetrics())
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(a)
}

func newAskCmd() *cobra.Command {
	var (
		session string
		user    string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Answer one question and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.Request{
				Query:     strings.Join(args, " "),
				SessionID: session,
				UserID:    user,
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				ans := a.Pipeline.Answer(cmd.Context(), req)
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(ans)
				}
				printAnswer(cmd.OutOrStdout(), ans)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (generated when empty)")
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full answer as JSON")
	return cmd
}

func printAnswer(w io.Writer, ans domain.Answer) {
	fmt.Fprintln(w, ans.Response)
	if ans.Visualization == nil || ans.Visualization.Table == nil {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(ans.Visualization.Table.Columns, "\t"))
	for _, row := range ans.Visualization.Table.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func newProfilesCmd() *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the floats in the profile store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tLAT\tLON\tACTIVE\tSAMPLES\tDEPTHS (m)")
				for _, s := range a.Store.Summaries(active) {
					fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%t\t%d\t%.1f-%.1f\n",
						s.ID, s.Latitude, s.Longitude, s.Active, s.SampleCount, s.MinDepth, s.MaxDepth)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "only list active floats")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, func(a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}
