package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/dogmatiq/docjournal"
	"github.com/dogmatiq/docjournal/internal/x/loggingx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RootOptions holds the flags shared by all commands.
type RootOptions struct {
	ConfigFile string
	Store      string
	Namespace  string
	Debug      bool
}

// NewRootCommand returns the root command of the docjournal CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "docjournal",
		Short:         "Inspect and modify an event journal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "store endpoint, such as bolt:///path/to/file.boltdb or sqlite:///path/to/file.db (overrides the configuration)")
	cmd.PersistentFlags().StringVar(&opts.Namespace, "namespace", "", "entity namespace (overrides the configuration)")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newAppendCommand(opts),
		newHighestCommand(opts),
		newReplayCommand(opts),
		newDeleteCommand(opts),
		newEventsCommand(opts),
		newEntitiesCommand(opts),
	)

	return cmd
}

// config returns the configuration described by the flags, the configuration
// file and the environment.
func (o *RootOptions) config() (docjournal.Config, error) {
	var cfg docjournal.Config

	if o.ConfigFile != "" {
		var err error
		cfg, err = docjournal.LoadConfigFile(o.ConfigFile)
		if err != nil {
			return docjournal.Config{}, err
		}
	} else {
		cfg = docjournal.ConfigFromEnvironment()
	}

	if o.Store != "" {
		cfg.ServerEndpoints = []string{o.Store}
	}

	if o.Namespace != "" {
		cfg.EntityNamespace = o.Namespace
	}

	return cfg, nil
}

// logger returns a zap logger that writes to w.
func (o *RootOptions) logger(w io.Writer) *zap.Logger {
	level := zapcore.InfoLevel
	if o.Debug {
		level = zapcore.DebugLevel
	}

	return zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(w),
			level,
		),
	)
}

// withEngine opens the configured store, starts an engine and calls fn.
func (o *RootOptions) withEngine(
	cmd *cobra.Command,
	fn func(ctx context.Context, e *docjournal.Engine) error,
) error {
	ctx := cmd.Context()

	cfg, err := o.config()
	if err != nil {
		return err
	}

	options, err := cfg.Options()
	if err != nil {
		return err
	}

	store, err := docjournal.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := o.logger(cmd.ErrOrStderr())
	defer logger.Sync() //nolint:errcheck

	e := docjournal.New(
		store,
		append(
			options,
			docjournal.WithMarshaler(newMarshaler()),
			docjournal.WithLogger(loggingx.Zap(logger)),
		)...,
	)

	if err := e.Run(ctx); err != nil {
		return err
	}

	return fn(ctx, e)
}

// writeJSON writes v to w as a single line of JSON.
func writeJSON(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}
