// Package store persists flattened Robot Framework results.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/robotdb/pkg/config"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides persistence for run trees.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// InTx runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(w Writer) error) error

	// DeleteRunsStartedBefore removes every run whose start time is at or
	// before cutoff, together with its suites, tests and test details.
	DeleteRunsStartedBefore(ctx context.Context, cutoff time.Time) (*RowCounts, error)

	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, id uint) (*Run, error)
	ListSuites(ctx context.Context, runID uint) ([]Suite, error)
	ListTests(ctx context.Context, suiteID uint) ([]Test, error)
	GetTestDetail(ctx context.Context, testID uint) (*TestDetail, error)
	CountRows(ctx context.Context) (*RowCounts, error)
}

// Writer inserts rows within a transaction. Each Create call fills in the
// identifier assigned by the database.
type Writer interface {
	CreateRun(run *Run) error
	CreateSuite(suite *Suite) error
	CreateTest(test *Test) error
	CreateTestDetail(detail *TestDetail) error
}

// Compile-time interface checks.
var (
	_ Store  = (*store)(nil)
	_ Writer = (*txWriter)(nil)
)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and creates any missing tables.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(s.cfg.SQLite.Path))
	case config.DriverPostgres:
		dialector = postgres.Open(s.cfg.Postgres.DSN())
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	s.db = db

	if err := s.ping(ctx); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Run{},
		&Suite{},
		&Test{},
		&TestDetail{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

func (s *store) ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	if s.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	return nil
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off by
// default.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=foreign_keys") {
		return path
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + "_pragma=foreign_keys(1)"
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// InTx runs fn inside a single transaction.
func (s *store) InTx(ctx context.Context, fn func(w Writer) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txWriter{tx: tx})
	})
}

type txWriter struct {
	tx *gorm.DB
}

func (w *txWriter) CreateRun(run *Run) error {
	if err := w.tx.Omit(clause.Associations).Create(run).Error; err != nil {
		return fmt.Errorf("creating run: %w", err)
	}

	return nil
}

func (w *txWriter) CreateSuite(suite *Suite) error {
	if err := w.tx.Omit(clause.Associations).Create(suite).Error; err != nil {
		return fmt.Errorf("creating suite: %w", err)
	}

	return nil
}

func (w *txWriter) CreateTest(test *Test) error {
	if err := w.tx.Omit(clause.Associations).Create(test).Error; err != nil {
		return fmt.Errorf("creating test: %w", err)
	}

	return nil
}

func (w *txWriter) CreateTestDetail(detail *TestDetail) error {
	if err := w.tx.Create(detail).Error; err != nil {
		return fmt.Errorf("creating test detail: %w", err)
	}

	return nil
}

// DeleteRunsStartedBefore deletes innermost tables first so foreign keys
// hold at every step, all within one transaction.
func (s *store) DeleteRunsStartedBefore(
	ctx context.Context, cutoff time.Time,
) (*RowCounts, error) {
	var counts RowCounts

	// Timestamps are written in UTC; SQLite compares them as text.
	cutoff = cutoff.UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		runIDs := tx.Model(&Run{}).
			Select("id").
			Where("starttime <= ?", cutoff)
		suiteIDs := tx.Model(&Suite{}).
			Select("id").
			Where("testrunid IN (?)", runIDs)
		testIDs := tx.Model(&Test{}).
			Select("id").
			Where("testsuiteid IN (?)", suiteIDs)

		res := tx.Where("testresultid IN (?)", testIDs).Delete(&TestDetail{})
		if res.Error != nil {
			return fmt.Errorf("deleting test details: %w", res.Error)
		}

		counts.Details = res.RowsAffected

		res = tx.Where("testsuiteid IN (?)", suiteIDs).Delete(&Test{})
		if res.Error != nil {
			return fmt.Errorf("deleting tests: %w", res.Error)
		}

		counts.Tests = res.RowsAffected

		res = tx.Where("testrunid IN (?)", runIDs).Delete(&Suite{})
		if res.Error != nil {
			return fmt.Errorf("deleting suites: %w", res.Error)
		}

		counts.Suites = res.RowsAffected

		res = tx.Where("starttime <= ?", cutoff).Delete(&Run{})
		if res.Error != nil {
			return fmt.Errorf("deleting runs: %w", res.Error)
		}

		counts.Runs = res.RowsAffected

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &counts, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := s.db.WithContext(ctx).Order("starttime DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// GetRun returns the run with the given id.
func (s *store) GetRun(ctx context.Context, id uint) (*Run, error) {
	var run Run
	if err := s.db.WithContext(ctx).First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %d: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("getting run: %w", err)
	}

	return &run, nil
}

// ListSuites returns the suites of a run in insertion order.
func (s *store) ListSuites(ctx context.Context, runID uint) ([]Suite, error) {
	var suites []Suite
	if err := s.db.WithContext(ctx).
		Where("testrunid = ?", runID).
		Order("id ASC").
		Find(&suites).Error; err != nil {
		return nil, fmt.Errorf("listing suites: %w", err)
	}

	return suites, nil
}

// ListTests returns the tests of a suite in insertion order.
func (s *store) ListTests(ctx context.Context, suiteID uint) ([]Test, error) {
	var tests []Test
	if err := s.db.WithContext(ctx).
		Where("testsuiteid = ?", suiteID).
		Order("id ASC").
		Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("listing tests: %w", err)
	}

	return tests, nil
}

// GetTestDetail returns the detail row of a test.
func (s *store) GetTestDetail(
	ctx context.Context, testID uint,
) (*TestDetail, error) {
	var detail TestDetail
	if err := s.db.WithContext(ctx).
		Where("testresultid = ?", testID).
		First(&detail).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test detail for test %d: %w", testID, ErrNotFound)
		}

		return nil, fmt.Errorf("getting test detail: %w", err)
	}

	return &detail, nil
}

// CountRows returns the number of rows in each of the four tables.
func (s *store) CountRows(ctx context.Context) (*RowCounts, error) {
	var counts RowCounts

	db := s.db.WithContext(ctx)

	for _, c := range []struct {
		model any
		dst   *int64
	}{
		{&Run{}, &counts.Runs},
		{&Suite{}, &counts.Suites},
		{&Test{}, &counts.Tests},
		{&TestDetail{}, &counts.Details},
	} {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}

	return &counts, nil
}
