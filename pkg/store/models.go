package store

import "time"

// Column types match result databases written by earlier exporter releases
// (integer, double precision, varchar, timestamp, json), so AutoMigrate has
// nothing to alter on them. The postgres migrator never alters primary keys.

// Run is one execution of a top-level report.
type Run struct {
	ID          uint       `gorm:"primaryKey" json:"id" yaml:"id"`
	Name        string     `gorm:"column:testrun;type:varchar" json:"name" yaml:"name"`
	Passed      int        `gorm:"column:passed;type:integer" json:"passed" yaml:"passed"`
	Failed      int        `gorm:"column:failed;type:integer" json:"failed" yaml:"failed"`
	Skipped     int        `gorm:"column:skipped;type:integer" json:"skipped" yaml:"skipped"`
	Total       int        `gorm:"column:total;type:integer" json:"total" yaml:"total"`
	ElapsedTime float64    `gorm:"column:elapsedtime;type:double precision" json:"elapsed_time" yaml:"elapsed_time"`
	StartTime   *time.Time `gorm:"column:starttime;type:timestamp;index" json:"start_time" yaml:"start_time"`
	EndTime     *time.Time `gorm:"column:endtime;type:timestamp" json:"end_time" yaml:"end_time"`

	Suites []Suite `gorm:"foreignKey:RunID" json:"-" yaml:"-"`
}

// TableName keeps the table name used by existing result databases.
func (Run) TableName() string { return "testrun_results" }

// Suite is a test suite that directly owns test cases.
type Suite struct {
	ID          uint       `gorm:"primaryKey" json:"id" yaml:"id"`
	RunID       uint       `gorm:"column:testrunid;type:integer;not null;index" json:"run_id" yaml:"run_id"`
	Name        string     `gorm:"column:testsuite;type:varchar" json:"name" yaml:"name"`
	Passed      int        `gorm:"column:passed;type:integer" json:"passed" yaml:"passed"`
	Failed      int        `gorm:"column:failed;type:integer" json:"failed" yaml:"failed"`
	Skipped     int        `gorm:"column:skipped;type:integer" json:"skipped" yaml:"skipped"`
	Total       int        `gorm:"column:total;type:integer" json:"total" yaml:"total"`
	ElapsedTime float64    `gorm:"column:elapsedtime;type:double precision" json:"elapsed_time" yaml:"elapsed_time"`
	StartTime   *time.Time `gorm:"column:starttime;type:timestamp" json:"start_time" yaml:"start_time"`
	EndTime     *time.Time `gorm:"column:endtime;type:timestamp" json:"end_time" yaml:"end_time"`

	Tests []Test `gorm:"foreignKey:SuiteID" json:"-" yaml:"-"`
}

// TableName keeps the table name used by existing result databases.
func (Suite) TableName() string { return "suite_results" }

// Test is a single test case outcome.
type Test struct {
	ID          uint       `gorm:"primaryKey" json:"id" yaml:"id"`
	SuiteID     uint       `gorm:"column:testsuiteid;type:integer;not null;index" json:"suite_id" yaml:"suite_id"`
	Name        string     `gorm:"column:testcase;type:varchar" json:"name" yaml:"name"`
	Status      string     `gorm:"column:status;type:varchar" json:"status" yaml:"status"`
	ElapsedTime float64    `gorm:"column:elapsedtime;type:double precision" json:"elapsed_time" yaml:"elapsed_time"`
	StartTime   *time.Time `gorm:"column:starttime;type:timestamp" json:"start_time" yaml:"start_time"`
	EndTime     *time.Time `gorm:"column:endtime;type:timestamp" json:"end_time" yaml:"end_time"`

	Details []TestDetail `gorm:"foreignKey:TestID" json:"-" yaml:"-"`
}

// TableName keeps the table name used by existing result databases.
func (Test) TableName() string { return "test_results" }

// TestDetail holds the full serialized attribute set of a Test.
type TestDetail struct {
	ID      uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	TestID  uint   `gorm:"column:testresultid;type:integer;not null;index" json:"test_id" yaml:"test_id"`
	Payload string `gorm:"column:json;type:json" json:"payload" yaml:"payload"`
}

// TableName keeps the table name used by existing result databases.
func (TestDetail) TableName() string { return "test_results_json" }

// RowCounts reports the number of rows in each table.
type RowCounts struct {
	Runs    int64 `json:"runs" yaml:"runs"`
	Suites  int64 `json:"suites" yaml:"suites"`
	Tests   int64 `json:"tests" yaml:"tests"`
	Details int64 `json:"details" yaml:"details"`
}
