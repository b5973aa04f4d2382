package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-concord/infrastructure/middleware"
	"github.com/ahrav/go-concord/internal/application"
	"github.com/ahrav/go-concord/internal/config"
)

var version = "dev"

// app carries what PersistentPreRunE resolves for the subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *logrus.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "concord",
		Short: "Concord - consolidate decision-makers' criterion weights",
		Long: `Concord consolidates the criterion weights of several decision-makers
into one weight vector and reports how strongly they agree on each criterion.

Decision-makers whose weights sit far from the uniform distribution receive
less influence in the combined vector. Each criterion gets a Consensus Index
between 0 and 1.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Settings file (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.init(cmd.ErrOrStderr())
	}

	cmd.AddCommand(newRunCommand(a))
	cmd.AddCommand(newValidateCommand(a))
	cmd.AddCommand(newServeCommand(a))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// init loads the settings file, applies flag overrides, and builds the logger.
func (a *app) init(logOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Log, logOut)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// consolidator loads the stage graph and wraps it with the stage observers.
// Extra observers run inside the logging and tracing ones.
func (a *app) consolidator(ctx context.Context, source string, opts []application.ConsolidatorOption, extra ...middleware.StageObserver) (*application.Consolidator, error) {
	observers := append([]middleware.StageObserver{
		middleware.NewLoggingObserver(a.logger),
		middleware.NewOTelStageObserver(nil),
	}, extra...)

	loader, err := application.NewGraphLoader(application.NewDefaultUnitRegistry(), middleware.Observe(observers...))
	if err != nil {
		return nil, fmt.Errorf("graph loader: %w", err)
	}

	var graph *application.Graph
	if a.cfg.Graph != "" {
		graph, err = loader.LoadFromFile(ctx, a.cfg.Graph)
	} else {
		graph, err = loader.LoadDefault(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	opts = append([]application.ConsolidatorOption{
		application.WithLogger(a.logger),
		application.WithSource(source),
		application.WithInputChecks(a.cfg.Input),
	}, opts...)
	return application.NewConsolidator(graph, opts...)
}

// openInput opens path for reading; "-" reads standard input.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open submission: %w", err)
	}
	return f, nil
}
