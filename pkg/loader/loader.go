// Package loader flattens a parsed Robot Framework result into the four
// result tables.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethpandaops/robotdb/pkg/robot"
	"github.com/ethpandaops/robotdb/pkg/store"
	"github.com/sirupsen/logrus"
)

// Summary describes the rows written by a single Load call.
type Summary struct {
	RunID   uint
	Suites  int
	Tests   int
	Details int
}

// Loader writes result trees to a store.
type Loader struct {
	log   logrus.FieldLogger
	store store.Store
}

// New returns a Loader writing to s.
func New(log logrus.FieldLogger, s store.Store) *Loader {
	return &Loader{
		log:   log.WithField("component", "loader"),
		store: s,
	}
}

// Load inserts one run, a suite for every suite with direct tests, and a
// test plus test detail row for each of those tests, all in a single
// transaction. Loading the same result twice produces two run trees.
func (l *Loader) Load(ctx context.Context, result *robot.Result) (*Summary, error) {
	if result == nil || result.Suite == nil {
		return nil, robot.ErrNoSuite
	}

	suites := robot.SuitesWithTests(result.Suite)

	l.log.WithFields(logrus.Fields{
		"run":    result.Suite.Name,
		"suites": len(suites),
	}).Info("Exporting data to database")

	var summary Summary

	err := l.store.InTx(ctx, func(w store.Writer) error {
		summary = Summary{}

		run := RunRecord(result)
		if err := w.CreateRun(run); err != nil {
			return err
		}

		summary.RunID = run.ID

		for _, suite := range suites {
			suiteRow := SuiteRecord(run.ID, suite)
			if err := w.CreateSuite(suiteRow); err != nil {
				return fmt.Errorf("suite %q: %w", suite.Name, err)
			}

			summary.Suites++

			for _, test := range suite.Tests {
				testRow := TestRecord(suiteRow.ID, test)
				if err := w.CreateTest(testRow); err != nil {
					return fmt.Errorf("test %q: %w", test.Name, err)
				}

				summary.Tests++

				detail, err := DetailRecord(testRow.ID, test)
				if err != nil {
					return fmt.Errorf("test %q: %w", test.Name, err)
				}

				if err := w.CreateTestDetail(detail); err != nil {
					return fmt.Errorf("test %q: %w", test.Name, err)
				}

				summary.Details++
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"run_id": summary.RunID,
		"suites": summary.Suites,
		"tests":  summary.Tests,
	}).Info("Results committed")

	return &summary, nil
}

// RunRecord maps the report-level statistics and root suite timing.
func RunRecord(result *robot.Result) *store.Run {
	stat := result.Statistics.Total
	root := result.Suite

	return &store.Run{
		Name:        root.Name,
		Passed:      stat.Passed,
		Failed:      stat.Failed,
		Skipped:     stat.Skipped,
		Total:       stat.Total(),
		ElapsedTime: root.Status.Elapsed.Seconds(),
		StartTime:   utc(root.Status.StartTime),
		EndTime:     utc(root.Status.EndTime),
	}
}

// SuiteRecord maps a suite under the given run.
func SuiteRecord(runID uint, suite *robot.Suite) *store.Suite {
	stat := suite.Statistics()

	return &store.Suite{
		RunID:       runID,
		Name:        suite.Name,
		Passed:      stat.Passed,
		Failed:      stat.Failed,
		Skipped:     stat.Skipped,
		Total:       stat.Total(),
		ElapsedTime: suite.Status.Elapsed.Seconds(),
		StartTime:   utc(suite.Status.StartTime),
		EndTime:     utc(suite.Status.EndTime),
	}
}

// TestRecord maps a test under the given suite.
func TestRecord(suiteID uint, test *robot.Test) *store.Test {
	return &store.Test{
		SuiteID:     suiteID,
		Name:        test.Name,
		Status:      test.Status.Status,
		ElapsedTime: test.Status.Elapsed.Seconds(),
		StartTime:   utc(test.Status.StartTime),
		EndTime:     utc(test.Status.EndTime),
	}
}

// DetailRecord serializes the test's attributes wrapped in a single-element
// list.
func DetailRecord(testID uint, test *robot.Test) (*store.TestDetail, error) {
	payload, err := json.Marshal([]map[string]any{test.ToMap()})
	if err != nil {
		return nil, fmt.Errorf("encoding test payload: %w", err)
	}

	return &store.TestDetail{
		TestID:  testID,
		Payload: string(payload),
	}, nil
}

// utc returns nil for unset times so they are stored as NULL.
func utc(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	u := t.UTC()

	return &u
}
