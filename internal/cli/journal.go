package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/dogmatiq/docjournal"
	"github.com/dogmatiq/docjournal/envelope"
	"github.com/dogmatiq/docjournal/journal"
	"github.com/spf13/cobra"
)

func newAppendCommand(opts *RootOptions) *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "append <entity> <json>...",
		Short: "Append events to an entity",
		Long: `Append one or more events to the end of an entity's event stream.

Each event is given as a JSON document. The events are committed atomically.

Examples:
  docjournal append user-1 '{"name":"Bob"}' --store bolt:///tmp/journal.boltdb
  docjournal append user-1 '{"a":1}' '{"b":2}' --tag users`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID := args[0]

			var events []interface{}
			for _, arg := range args[1:] {
				if !json.Valid([]byte(arg)) {
					return fmt.Errorf("invalid JSON event: %s", arg)
				}
				events = append(events, RawEvent{json.RawMessage(arg)})
			}

			return opts.withEngine(cmd, func(ctx context.Context, e *docjournal.Engine) error {
				highest, err := e.Journal().ReadHighestSequenceNr(ctx, entityID)
				if err != nil {
					return err
				}

				w := journal.AtomicWrite{EntityID: entityID}
				for i, ev := range events {
					w.Events = append(w.Events, envelope.Envelope{
						EntityID:   entityID,
						SequenceNr: highest + int64(i) + 1,
						Event:      ev,
						Tags:       tags,
					})
				}

				results, err := e.Journal().Append(ctx, []journal.AtomicWrite{w})
				if err != nil {
					return err
				}

				if results[0] != nil {
					return results[0]
				}

				fmt.Fprintf(
					cmd.OutOrStdout(),
					"appended events %d..%d to %q\n",
					highest+1,
					highest+int64(len(events)),
					entityID,
				)

				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to apply to each event (may be repeated)")

	return cmd
}

func newHighestCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "highest <entity>",
		Short: "Print the highest sequence number of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, e *docjournal.Engine) error {
				n, err := e.Journal().ReadHighestSequenceNr(ctx, args[0])
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newReplayCommand(opts *RootOptions) *cobra.Command {
	var from, to, limit int64

	cmd := &cobra.Command{
		Use:   "replay <entity>",
		Short: "Print an entity's events",
		Long: `Print an entity's events as JSON, one per line.

Examples:
  docjournal replay user-1
  docjournal replay user-1 --from 10 --to 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, e *docjournal.Engine) error {
				return e.Journal().Replay(
					ctx,
					args[0],
					from,
					to,
					limit,
					func(env envelope.Envelope) error {
						data, err := eventData(env.Event)
						if err != nil {
							return err
						}

						return writeJSON(cmd.OutOrStdout(), eventOutput{
							EntityID:   env.EntityID,
							SequenceNr: env.SequenceNr,
							Timestamp:  env.Timestamp,
							Tags:       env.Tags,
							Event:      data,
						})
					},
				)
			})
		},
	}

	cmd.Flags().Int64Var(&from, "from", 1, "the first sequence number to print")
	cmd.Flags().Int64Var(&to, "to", math.MaxInt64, "the last sequence number to print")
	cmd.Flags().Int64Var(&limit, "max", math.MaxInt64, "the maximum number of events to print")

	return cmd
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity> <to>",
		Short: "Delete an entity's events up to and including a sequence number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sequence number: %w", err)
			}

			return opts.withEngine(cmd, func(ctx context.Context, e *docjournal.Engine) error {
				return e.Journal().DeleteUpTo(ctx, args[0], to)
			})
		},
	}
}
