package loader_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/robotdb/pkg/config"
	"github.com/ethpandaops/robotdb/pkg/loader"
	"github.com/ethpandaops/robotdb/pkg/robot"
	"github.com/ethpandaops/robotdb/pkg/store"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	s := store.NewStore(testLogger(), &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		SQLite: config.SQLiteDatabaseConfig{
			Path: filepath.Join(t.TempDir(), "robotdb.sqlite"),
		},
	})
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func status(s string, start time.Time, elapsed time.Duration) robot.Status {
	return robot.Status{Status: s, StartTime: start, EndTime: start.Add(elapsed), Elapsed: elapsed}
}

// scenario builds a run with suite A (one passing and one failing test)
// and container suite B holding suite C (one passing test).
func scenario() *robot.Result {
	start := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	a := &robot.Suite{
		Name:   "A",
		Status: status(robot.StatusFail, start, 2*time.Second),
		Tests: []*robot.Test{
			{ID: "s1-s1-t1", Name: "a pass", Status: status(robot.StatusPass, start, time.Second)},
			{ID: "s1-s1-t2", Name: "a fail", Status: status(robot.StatusFail, start.Add(time.Second), time.Second)},
		},
	}
	c := &robot.Suite{
		Name:   "C",
		Status: status(robot.StatusPass, start.Add(2*time.Second), time.Second),
		Tests: []*robot.Test{
			{ID: "s1-s2-s1-t1", Name: "c pass", Status: status(robot.StatusPass, start.Add(2*time.Second), time.Second)},
		},
	}
	b := &robot.Suite{
		Name:   "B",
		Status: status(robot.StatusPass, start.Add(2*time.Second), time.Second),
		Suites: []*robot.Suite{c},
	}
	root := &robot.Suite{
		Name:   "Root",
		Status: status(robot.StatusFail, start, 3*time.Second),
		Suites: []*robot.Suite{a, b},
	}

	return &robot.Result{
		Suite:      root,
		Statistics: robot.Statistics{Total: robot.Stat{Passed: 2, Failed: 1}},
	}
}

func TestLoader_Scenario(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	summary, err := loader.New(testLogger(), s).Load(ctx, scenario())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Suites)
	assert.Equal(t, 3, summary.Tests)
	assert.Equal(t, 3, summary.Details)

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.RowCounts{Runs: 1, Suites: 2, Tests: 3, Details: 3}, *counts)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, summary.RunID, run.ID)
	assert.Equal(t, "Root", run.Name)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, 2, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 0, run.Skipped)
	assert.InDelta(t, 3.0, run.ElapsedTime, 1e-9)
	require.NotNil(t, run.StartTime)
	assert.True(t, run.StartTime.Equal(time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)))

	suites, err := s.ListSuites(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, suites, 2)
	assert.Equal(t, "A", suites[0].Name)
	assert.Equal(t, "C", suites[1].Name)
	assert.Equal(t, 2, suites[0].Total)
	assert.Equal(t, 1, suites[0].Failed)

	aTests, err := s.ListTests(ctx, suites[0].ID)
	require.NoError(t, err)
	require.Len(t, aTests, 2)
	assert.Equal(t, "PASS", aTests[0].Status)
	assert.Equal(t, "FAIL", aTests[1].Status)

	cTests, err := s.ListTests(ctx, suites[1].ID)
	require.NoError(t, err)
	require.Len(t, cTests, 1)
	assert.Equal(t, "c pass", cTests[0].Name)

	detail, err := s.GetTestDetail(ctx, cTests[0].ID)
	require.NoError(t, err)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal([]byte(detail.Payload), &payload))
	require.Len(t, payload, 1)
	assert.Equal(t, "c pass", payload[0]["name"])
	assert.Equal(t, "PASS", payload[0]["status"])
}

func TestLoader_TwiceDuplicates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	l := loader.New(testLogger(), s)

	first, err := l.Load(ctx, scenario())
	require.NoError(t, err)
	second, err := l.Load(ctx, scenario())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.RowCounts{Runs: 2, Suites: 4, Tests: 6, Details: 6}, *counts)

	for _, runID := range []uint{first.RunID, second.RunID} {
		suites, err := s.ListSuites(ctx, runID)
		require.NoError(t, err)
		assert.Len(t, suites, 2, "each run owns its own suites")
	}
}

func TestLoader_ReportFile(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	result, err := robot.ParseFile("../robot/testdata/output_rf7.xml")
	require.NoError(t, err)

	summary, err := loader.New(testLogger(), s).Load(ctx, result)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Suites)
	assert.Equal(t, 3, summary.Tests)

	runs, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Acceptance", runs[0].Name)
	assert.Equal(t, 3, runs[0].Total)
}

func TestLoader_NoSuite(t *testing.T) {
	s := setupTestStore(t)

	_, err := loader.New(testLogger(), s).Load(context.Background(), &robot.Result{})
	require.ErrorIs(t, err, robot.ErrNoSuite)
}

func TestLoader_ContainerOnlyReport(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	result := &robot.Result{
		Suite: &robot.Suite{Name: "Empty", Suites: []*robot.Suite{{Name: "Nothing"}}},
	}

	summary, err := loader.New(testLogger(), s).Load(ctx, result)
	require.NoError(t, err)
	assert.Zero(t, summary.Suites)

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.RowCounts{Runs: 1}, *counts)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].StartTime, "unset times are stored as NULL")
}

// failingStore fails the second suite insert to exercise rollback.
type failingStore struct {
	store.Store
}

func (f *failingStore) InTx(ctx context.Context, fn func(w store.Writer) error) error {
	return f.Store.InTx(ctx, func(w store.Writer) error {
		return fn(&failingWriter{Writer: w})
	})
}

type failingWriter struct {
	store.Writer
	suites int
}

var errInjected = errors.New("injected failure")

func (f *failingWriter) CreateSuite(suite *store.Suite) error {
	f.suites++
	if f.suites == 2 {
		return errInjected
	}

	return f.Writer.CreateSuite(suite)
}

func TestLoader_RollsBackOnError(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := loader.New(testLogger(), &failingStore{Store: s}).Load(ctx, scenario())
	require.ErrorIs(t, err, errInjected)

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.RowCounts{}, *counts)
}

func TestRecords(t *testing.T) {
	result := scenario()

	run := loader.RunRecord(result)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, "Root", run.Name)

	b := result.Suite.Suites[1]
	suite := loader.SuiteRecord(7, b)
	assert.Equal(t, uint(7), suite.RunID)
	assert.Equal(t, 1, suite.Total, "suite statistics include nested tests")

	test := loader.TestRecord(9, result.Suite.Suites[0].Tests[1])
	assert.Equal(t, uint(9), test.SuiteID)
	assert.Equal(t, "FAIL", test.Status)
	assert.InDelta(t, 1.0, test.ElapsedTime, 1e-9)

	detail, err := loader.DetailRecord(11, result.Suite.Suites[0].Tests[0])
	require.NoError(t, err)
	assert.Equal(t, uint(11), detail.TestID)
	assert.True(t, json.Valid([]byte(detail.Payload)))
	assert.Equal(t, byte('['), detail.Payload[0])
}
