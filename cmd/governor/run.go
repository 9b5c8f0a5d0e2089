package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/governor/internal/core/session"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var expiresIn time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the runtime loops until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, done, err := opts.runtime()
			if err != nil {
				return err
			}
			defer done()

			ctx := cmd.Context()
			if err := rt.Start(ctx); err != nil {
				return err
			}
			if expiresIn > 0 {
				if err := rt.OnLogin(session.NewExpiry(time.Now().Add(expiresIn))); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "governor running, press Ctrl+C to stop")

			<-ctx.Done()
			return rt.Stop(ctx)
		},
	}
	cmd.Flags().DurationVar(&expiresIn, "session-expires", 0,
		"bind a session expiring after this duration (0 = no session)")
	return cmd
}
