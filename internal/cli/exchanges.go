package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gemini-chat/internal/app"
	"gemini-chat/internal/domain"
)

// exchangeLister is the read side of repository.ExchangeLog.
type exchangeLister interface {
	RecentExchanges(ctx context.Context, day time.Time, limit int) ([]domain.Exchange, error)
}

func newExchangesCmd(opts *rootOptions) *cobra.Command {
	var (
		day   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "exchanges",
		Short: "List recent /api/chat outcomes from the exchange log",
		Long: `List the exchanges recorded in the DynamoDB table named by
EXCHANGE_TABLE, newest first. Only outcomes are stored, never message text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := time.Now().UTC()
			if day != "" {
				parsed, err := time.Parse(time.DateOnly, day)
				if err != nil {
					return fmt.Errorf("invalid --day %q, want YYYY-MM-DD", day)
				}
				d = parsed
			}

			clients, err := app.LoadAWS(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			log, err := app.NewExchangeLog(opts.cfg, clients)
			if err != nil {
				return err
			}
			return listExchanges(cmd, log, d, limit)
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "UTC day to list, YYYY-MM-DD (default today)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of exchanges")
	return cmd
}

func listExchanges(cmd *cobra.Command, lister exchangeLister, day time.Time, limit int) error {
	exchanges, err := lister.RecentExchanges(cmd.Context(), day, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(exchanges) == 0 {
		fmt.Fprintf(out, "no exchanges on %s\n", day.Format(time.DateOnly))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tCODE\tMODEL\tCHARS\tLATENCY")
	for _, ex := range exchanges {
		code := ex.ErrorCode
		if code == "" {
			code = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%dms\n",
			clockTime(ex.CreatedAt), ex.Status, code, ex.Model, ex.MessageLength, ex.LatencyMillis)
	}
	return tw.Flush()
}

func clockTime(createdAt string) string {
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return createdAt
	}
	return t.UTC().Format(time.TimeOnly)
}
