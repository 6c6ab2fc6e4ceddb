package robot

import (
	"errors"
	"time"
)

// Test and keyword status labels as written by Robot Framework.
const (
	StatusPass   = "PASS"
	StatusFail   = "FAIL"
	StatusSkip   = "SKIP"
	StatusNotRun = "NOT RUN"
)

// ErrNoSuite is returned when a report has no root suite.
var ErrNoSuite = errors.New("report contains no root suite")

// Result is a parsed Robot Framework execution report.
type Result struct {
	Generator  string
	Generated  time.Time
	Suite      *Suite
	Statistics Statistics
}

// Statistics holds the report-level aggregate counts.
type Statistics struct {
	Total Stat
}

// Stat is a pass/fail/skip tally.
type Stat struct {
	Passed  int
	Failed  int
	Skipped int
}

// Total returns the number of tests covered by the tally.
func (s Stat) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// add counts a single test status the way Robot Framework does: skipped
// and passed tests are tallied as such, everything else counts as failed.
func (s *Stat) add(status string) {
	switch status {
	case StatusSkip:
		s.Skipped++
	case StatusPass:
		s.Passed++
	default:
		s.Failed++
	}
}

// Status carries the outcome and timing of a suite, test or keyword.
type Status struct {
	Status    string
	Message   string
	StartTime time.Time
	EndTime   time.Time
	Elapsed   time.Duration
}

// Suite is a node in the suite tree.
type Suite struct {
	ID       string
	Name     string
	Source   string
	Doc      string
	Metadata map[string]string
	Status   Status
	Suites   []*Suite
	Tests    []*Test
}

// Statistics counts every test in the suite, including those in nested
// suites.
func (s *Suite) Statistics() Stat {
	var stat Stat

	s.walk(func(suite *Suite) {
		for _, t := range suite.Tests {
			stat.add(t.Status.Status)
		}
	})

	return stat
}

// TestCount returns the number of tests in the suite and its children.
func (s *Suite) TestCount() int {
	return s.Statistics().Total()
}

// walk visits the suite and its descendants in pre-order.
func (s *Suite) walk(fn func(*Suite)) {
	fn(s)

	for _, child := range s.Suites {
		child.walk(fn)
	}
}

// Test is a single test case outcome.
type Test struct {
	ID       string
	Name     string
	Doc      string
	Tags     []string
	Timeout  string
	Lineno   int
	Status   Status
	Setup    *Keyword
	Teardown *Keyword
	Body     []*Keyword
}

// Keyword is a keyword call or control structure (FOR, IF, TRY, ...)
// executed as part of a test.
type Keyword struct {
	Type     string
	Name     string
	Owner    string
	Args     []string
	Assign   []string
	Tags     []string
	Doc      string
	Status   Status
	Messages []Message
	Body     []*Keyword
}

// Message is a log message emitted by a keyword.
type Message struct {
	Level     string
	Text      string
	Timestamp time.Time
	HTML      bool
}
