package main

import (
	"context"
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/ethpandaops/robotdb/pkg/archive"
	"github.com/ethpandaops/robotdb/pkg/config"
	"github.com/ethpandaops/robotdb/pkg/loader"
	"github.com/ethpandaops/robotdb/pkg/robot"
	"github.com/ethpandaops/robotdb/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	ingestInput   string
	ingestArchive bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a Robot Framework output file into the database",
	Long: `Parse a Robot Framework output.xml and insert one run, every suite that
directly contains tests, and each of those tests with its full JSON detail.
All rows are committed in a single transaction.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestInput, "input", config.DefaultInput,
		"Robot Framework output file to ingest")
	ingestCmd.Flags().BoolVar(&ingestArchive, "archive", false,
		"upload the report to S3 after ingesting (uses archive.s3 settings)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(c *config.Config) {
		if !ingestArchive {
			return
		}

		if c.Archive.S3 == nil {
			c.Archive.S3 = &config.S3ArchiveConfig{Prefix: config.DefaultArchivePrefix}
		}

		c.Archive.S3.Enabled = true
	})
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

	_, err = ingest(ctx, log, cfg, s, ingestInput)

	return err
}

// ingest parses input, loads it into s and archives the file when S3
// archiving is enabled. The bucket is checked for writes before any row is
// inserted.
func ingest(
	ctx context.Context,
	log logrus.FieldLogger,
	cfg *config.Config,
	s store.Store,
	input string,
) (*loader.Summary, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	log.WithFields(logrus.Fields{
		"input": input,
		"size":  units.HumanSize(float64(info.Size())),
	}).Info("Parsing report")

	result, err := robot.ParseFile(input)
	if err != nil {
		return nil, err
	}

	var archiver archive.Archiver

	if cfg.Archive.IsEnabled() {
		archiver = archive.NewS3Archiver(log, cfg.Archive.S3)

		if err := archiver.Preflight(ctx); err != nil {
			return nil, fmt.Errorf("archive preflight: %w", err)
		}
	}

	summary, err := loader.New(log, s).Load(ctx, result)
	if err != nil {
		return nil, err
	}

	if archiver != nil {
		if _, err := archiver.Archive(ctx, input, summary.RunID); err != nil {
			return summary, fmt.Errorf("archiving report: %w", err)
		}
	}

	return summary, nil
}
