package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rewardsfarmer-go/infrastructure/profile"
)

func newProfilesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List persisted device profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := profile.NewStore(c.cfg.ProfileRoot, c.logger).List()
			if err != nil {
				return fmt.Errorf("list profiles: %w", err)
			}
			if len(entries) == 0 {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "no profiles under %s\n", c.cfg.ProfileRoot)
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROFILE\tPERSONA\tSIZE\tUSER AGENT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\n",
					e.ProfileID, e.Persona, e.Profile.Width, e.Profile.Height, e.Profile.UserAgent)
			}
			return w.Flush()
		},
	}
}
