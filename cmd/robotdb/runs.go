package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ethpandaops/robotdb/pkg/robot"
	"github.com/ethpandaops/robotdb/pkg/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var (
	runsLimit   int
	runsOutput  string
	runsID      uint
	runsDetails bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recently loaded runs, or show the suites and tests of one",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if runsDetails && runsID == 0 {
			return errors.New("--details requires --id")
		}

		switch runsOutput {
		case outputTable, outputJSON, outputYAML:
			return nil
		default:
			return fmt.Errorf("invalid --output value %q (want table, json or yaml)", runsOutput)
		}
	},
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list (0 for all)")
	runsCmd.Flags().StringVarP(&runsOutput, "output", "o", outputTable, "output format (table, json, yaml)")
	runsCmd.Flags().UintVar(&runsID, "id", 0, "show the suites and tests of this run")
	runsCmd.Flags().BoolVar(&runsDetails, "details", false, "include each test's JSON detail (json and yaml output)")
}

func runRuns(cmd *cobra.Command, args []string) error {
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

	if runsID > 0 {
		view, err := loadRunTree(ctx, s, runsID, runsDetails)
		if err != nil {
			return err
		}

		return writeRunTree(cmd.OutOrStdout(), view, runsOutput)
	}

	runs, err := s.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}

	return writeRuns(cmd.OutOrStdout(), runs, runsOutput)
}

func encode(w io.Writer, v any, format string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}

		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeRuns(w io.Writer, runs []store.Run, format string) error {
	if runs == nil {
		runs = []store.Run{}
	}

	switch format {
	case outputTable:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

		fmt.Fprintln(tw, "ID\tNAME\tSTARTED\tPASSED\tFAILED\tSKIPPED\tTOTAL\tELAPSED")

		for _, run := range runs {
			started := "-"
			if run.StartTime != nil {
				started = robot.FormatTimestamp(*run.StartTime)
			}

			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%.3fs\n",
				run.ID, run.Name, started,
				run.Passed, run.Failed, run.Skipped, run.Total, run.ElapsedTime)
		}

		return tw.Flush()
	default:
		return encode(w, runs, format)
	}
}

type runView struct {
	store.Run `yaml:",inline"`

	Suites []suiteView `json:"suites" yaml:"suites"`
}

type suiteView struct {
	store.Suite `yaml:",inline"`

	Tests []testView `json:"tests" yaml:"tests"`
}

type testView struct {
	store.Test `yaml:",inline"`

	Detail any `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// loadRunTree reads a run with its suites and tests. withDetails also
// decodes every test's JSON detail.
func loadRunTree(ctx context.Context, s store.Store, id uint, withDetails bool) (*runView, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	suites, err := s.ListSuites(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	view := &runView{Run: *run, Suites: make([]suiteView, 0, len(suites))}

	for _, suite := range suites {
		tests, err := s.ListTests(ctx, suite.ID)
		if err != nil {
			return nil, err
		}

		sv := suiteView{Suite: suite, Tests: make([]testView, 0, len(tests))}

		for _, test := range tests {
			tv := testView{Test: test}

			if withDetails {
				detail, err := s.GetTestDetail(ctx, test.ID)
				if err != nil {
					return nil, err
				}

				if err := json.Unmarshal([]byte(detail.Payload), &tv.Detail); err != nil {
					return nil, fmt.Errorf("decoding detail of test %d: %w", test.ID, err)
				}
			}

			sv.Tests = append(sv.Tests, tv)
		}

		view.Suites = append(view.Suites, sv)
	}

	return view, nil
}

func writeRunTree(w io.Writer, view *runView, format string) error {
	if format != outputTable {
		return encode(w, view, format)
	}

	if err := writeRuns(w, []store.Run{view.Run}, outputTable); err != nil {
		return err
	}

	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "SUITE\tTEST\tNAME\tSTATUS\tELAPSED")

	for _, suite := range view.Suites {
		fmt.Fprintf(tw, "%d\t-\t%s\t%d/%d/%d\t%.3fs\n",
			suite.ID, suite.Name, suite.Passed, suite.Failed, suite.Skipped, suite.ElapsedTime)

		for _, test := range suite.Tests {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%.3fs\n",
				suite.ID, test.ID, test.Name, test.Status, test.ElapsedTime)
		}
	}

	return tw.Flush()
}
