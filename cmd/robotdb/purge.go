package main

import (
	"context"
	"fmt"

	"github.com/ethpandaops/robotdb/pkg/retention"
	"github.com/ethpandaops/robotdb/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var purgeRetentionPeriod string

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove runs older than a retention period",
	Long: `Delete every run that started at or before now minus the retention
period, together with its suites, tests and test details.

Periods are written as a count and a unit, for example "30 days", "2w",
"6 months" or "1y".`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if purgeRetentionPeriod == "" {
			return fmt.Errorf("--retention-period is required")
		}

		if _, err := retention.ParsePeriod(purgeRetentionPeriod); err != nil {
			return fmt.Errorf("invalid --retention-period: %w", err)
		}

		return nil
	},
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().StringVar(&purgeRetentionPeriod, "retention-period", "",
		`remove runs older than this period, e.g. "30 days"`)
}

func runPurge(cmd *cobra.Command, args []string) error {
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

	_, err = purge(ctx, log, s, purgeRetentionPeriod)

	return err
}

// purge validates period before touching the database; an empty period is
// a no-op.
func purge(
	ctx context.Context,
	log logrus.FieldLogger,
	s store.Store,
	period string,
) (*retention.Summary, error) {
	if period != "" {
		if _, err := retention.ParsePeriod(period); err != nil {
			return nil, fmt.Errorf("invalid retention period: %w", err)
		}
	}

	return retention.NewPurger(log, s).Purge(ctx, period)
}
