package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/artiefy/course-actions/internal/adapter"
	"github.com/artiefy/course-actions/internal/config"
	"github.com/artiefy/course-actions/internal/search"
	"github.com/artiefy/course-actions/pkg/logger"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
)

var (
	cfgFile string
	showVer bool

	// cfg is loaded once by the root command before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "courseactions",
	Short: "Agent action adapter for the course search API",
	Long: `Receives action invocation events from a conversational agent,
searches courses through the course search API and answers with the
response envelope the agent framework expects.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if showVer {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVer {
			fmt.Fprintf(cmd.OutOrStdout(), "courseactions %s (built %s)\n", Version, BuildDate)
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ./config.yaml)")
	rootCmd.Flags().BoolVarP(&showVer, "version", "v", false, "show version")

	rootCmd.AddCommand(serveCmd, invokeCmd, lambdaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newAdapter wires the course search provider and adapter from configuration
func newAdapter(cfg *config.Config) (*adapter.Adapter, error) {
	mode, err := adapter.ParseSerializationMode(cfg.Envelope.Mode)
	if err != nil {
		return nil, err
	}

	provider := search.NewCourseProvider(cfg.Search, search.WithLogger(logger.Named("search")))

	logger.Info("adapter configured",
		zap.String("endpoint", cfg.Search.Endpoint),
		zap.Int("timeout_s", cfg.Search.Timeout),
		zap.String("mode", string(mode)),
		zap.Bool("strict_routing", cfg.Envelope.StrictRouting),
	)

	return adapter.New(provider,
		adapter.WithSerializationMode(mode),
		adapter.WithStrictRouting(cfg.Envelope.StrictRouting),
		adapter.WithLogger(logger.Named("adapter")),
	), nil
}
