package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethpandaops/robotdb/pkg/config"
	"github.com/ethpandaops/robotdb/pkg/retention"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information set at build time.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFiles    []string
	logLevel    string
	logLevelSet bool
	log         *logrus.Logger
)

var (
	rootInput           string
	rootRetentionPeriod string
)

func main() {
	log = logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("Failed to execute command")
	}
}

var rootCmd = &cobra.Command{
	Use:   "robotdb",
	Short: "Export Robot Framework results to a relational database",
	Long: `Robotdb loads a Robot Framework output.xml into the testrun_results,
suite_results, test_results and test_results_json tables and optionally
removes runs older than a retention period.

Without a subcommand it ingests --input and then purges with
--retention-period.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevelSet = cmd.Flags().Changed("log-level")

		return applyLogLevel(logLevel)
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if rootRetentionPeriod == "" {
			return nil
		}

		if _, err := retention.ParsePeriod(rootRetentionPeriod); err != nil {
			return fmt.Errorf("invalid --retention-period: %w", err)
		}

		return nil
	},
	RunE: runDefault,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("robotdb %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&cfgFiles, "config", nil,
		"config file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel,
		"log level ("+strings.Join(logLevels(), ", ")+")")

	rootCmd.Flags().StringVar(&rootInput, "input", config.DefaultInput,
		"Robot Framework output file to ingest")
	rootCmd.Flags().StringVar(&rootRetentionPeriod, "retention-period", "",
		`remove runs older than this period after ingesting, e.g. "30 days"`)

	rootCmd.AddCommand(versionCmd)
}

func applyLogLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}

	log.SetLevel(level)

	return nil
}

func logLevels() []string {
	levels := make([]string, 0, len(logrus.AllLevels))
	for _, level := range logrus.AllLevels {
		levels = append(levels, level.String())
	}

	return levels
}

func runDefault(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopStore(s)

	if _, err := ingest(ctx, log, cfg, s, rootInput); err != nil {
		return err
	}

	_, err = purge(ctx, log, s, rootRetentionPeriod)

	return err
}
