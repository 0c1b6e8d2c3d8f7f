package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rewardsfarmer-go/infrastructure/config"
	"rewardsfarmer-go/infrastructure/repository"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "history [username]",
		Short: "Show recent run results stored in MongoDB",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.cfg.Mongo.Enabled() {
				return errors.New("run history requires " + config.KeyMongoURI)
			}
			username := ""
			if len(args) == 1 {
				username = args[0]
			}

			ctx := cmd.Context()
			db, err := openMongo(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			results, err := repository.NewMongoResultStore(db, c.logger).Recent(ctx, username, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FINISHED\tUSERNAME\tSTART\tFINAL\tEARNED\tERROR")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					r.FinishedAt.Local().Format(time.DateTime), r.Username,
					r.StartingPoints, r.FinalPoints, r.Earned, r.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "maximum number of results")
	return cmd
}
