package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/zeusync/governor/internal/core/delivery"
)

func newQueueCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and operate the pending score queue",
	}
	cmd.AddCommand(
		newQueueListCmd(opts),
		newQueueSubmitCmd(opts),
		newQueueDrainCmd(opts),
		newQueueClearCmd(opts),
	)
	return cmd
}

func newQueueListCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending scores oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, done, err := opts.runtime()
			if err != nil {
				return err
			}
			defer done()

			records, err := rt.Pending(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if records == nil {
					records = []delivery.Record{}
				}
				return enc.Encode(records)
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "no pending scores")
				return nil
			}
			table := tablewriter.NewWriter(out)
			table.Header("ID", "Game", "Score", "Attempts", "Queued")
			for _, r := range records {
				_ = table.Append(
					r.ID,
					r.Payload.GameID,
					strconv.FormatInt(r.Payload.Score, 10),
					strconv.Itoa(r.AttemptCount),
					r.Timestamp.Format(time.RFC3339),
				)
			}
			if err := table.Render(); err != nil {
				return err
			}
			if rt.QueueFull(cmd.Context()) {
				fmt.Fprintln(out, "queue is full: scores will be sent once the connection is back")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func newQueueSubmitCmd(opts *rootOptions) *cobra.Command {
	var payload delivery.ScorePayload
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a score, queueing it when delivery fails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, done, err := opts.runtime()
			if err != nil {
				return err
			}
			defer done()

			res, err := rt.SubmitOrQueue(cmd.Context(), payload)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case res.Delivered:
				fmt.Fprintf(out, "delivered %s\n", res.ID)
			case res.Queued:
				fmt.Fprintf(out, "queued %s: %v\n", res.ID, res.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&payload.GameID, "game", "", "game identifier")
	cmd.Flags().Int64Var(&payload.Score, "score", 0, "score value")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

func newQueueDrainCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Attempt delivery of every pending score now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, done, err := opts.runtime()
			if err != nil {
				return err
			}
			defer done()

			res, err := rt.Drain(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"delivered=%d failed=%d deferred=%d unauthorized=%d dropped=%d remaining=%d\n",
				res.Delivered, res.Failed, res.Deferred, res.Unauthorized, res.Dropped, res.Remaining)
			return nil
		},
	}
}

func newQueueClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every pending score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, done, err := opts.runtime()
			if err != nil {
				return err
			}
			defer done()

			if err := rt.ClearPending(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "queue cleared")
			return nil
		},
	}
}
