package cli

import (
	"context"

	"github.com/dogmatiq/docjournal"
	"github.com/dogmatiq/docjournal/offset"
	"github.com/dogmatiq/docjournal/query"
	"github.com/spf13/cobra"
)

func newEventsCommand(opts *RootOptions) *cobra.Command {
	var (
		tag    string
		from   string
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print events from all entities",
		Long: `Print events from all entities as JSON, one per line, in the order they
were written.

Each line includes an offset that can be passed to --offset to resume after
that event. With --follow, new events are printed as they are written.

Examples:
  docjournal events --tag users
  docjournal events --offset 'A:10, B:3' --follow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := offset.Parse(from)
			if err != nil {
				return err
			}

			return opts.withEngine(cmd, func(ctx context.Context, e *docjournal.Engine) error {
				q := e.Queries()

				var s *query.Stream[query.EventEnvelope]

				switch {
				case tag != "" && follow:
					s, err = q.LiveEventsByTag(ctx, tag, o)
				case tag != "":
					s, err = q.CurrentEventsByTag(ctx, tag, o)
				case follow:
					s, err = q.LiveAllEvents(ctx, o)
				default:
					s, err = q.CurrentAllEvents(ctx, o)
				}

				if err != nil {
					return err
				}
				defer s.Close()

				return consume(ctx, s, func(env query.EventEnvelope) error {
					data, err := eventData(env.Event)
					if err != nil {
						return err
					}

					return writeJSON(cmd.OutOrStdout(), eventOutput{
						Offset:     formatOffset(env.Offset),
						EntityID:   env.EntityID,
						SequenceNr: env.SequenceNr,
						Timestamp:  env.Timestamp,
						Tags:       env.Tags,
						Event:      data,
					})
				})
			})
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "only print events with this tag")
	cmd.Flags().StringVar(&from, "offset", "", "only print events after this offset")
	cmd.Flags().BoolVar(&follow, "follow", false, "print new events as they are written")

	return cmd
}

func newEntitiesCommand(opts *RootOptions) *cobra.Command {
	var (
		from   string
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Print the IDs of entities that have events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := offset.Parse(from)
			if err != nil {
				return err
			}

			return opts.withEngine(cmd, func(ctx context.Context, e *docjournal.Engine) error {
				var s *query.Stream[query.EntityID]

				if follow {
					s, err = e.Queries().LiveEntityIDs(ctx, o)
				} else {
					s, err = e.Queries().CurrentEntityIDs(ctx, o)
				}

				if err != nil {
					return err
				}
				defer s.Close()

				return consume(ctx, s, func(id query.EntityID) error {
					return writeJSON(cmd.OutOrStdout(), entityOutput{
						Offset:   formatOffset(id.Offset),
						EntityID: id.EntityID,
					})
				})
			})
		},
	}

	cmd.Flags().StringVar(&from, "offset", "", "only print entities after this offset")
	cmd.Flags().BoolVar(&follow, "follow", false, "print new entities as they are created")

	return cmd
}

// consume calls fn for each item in s until the stream completes.
func consume[T any](ctx context.Context, s *query.Stream[T], fn func(T) error) error {
	for {
		item, ok, err := s.Next(ctx)
		if !ok || err != nil {
			return err
		}

		if err := fn(item); err != nil {
			return err
		}
	}
}
