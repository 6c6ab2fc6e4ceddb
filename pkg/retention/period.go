// Package retention removes run trees that are older than a configured
// retention period.
package retention

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPeriod is returned for retention periods outside the accepted
// grammar.
var ErrInvalidPeriod = errors.New("invalid retention period")

// Unit is a calendar or clock unit of a retention period.
type Unit string

// Supported units.
const (
	UnitSecond Unit = "second"
	UnitMinute Unit = "minute"
	UnitHour   Unit = "hour"
	UnitDay    Unit = "day"
	UnitWeek   Unit = "week"
	UnitMonth  Unit = "month"
	UnitYear   Unit = "year"
)

var periodPattern = regexp.MustCompile(`^(\d+)\s*([a-z]+)$`)

var unitAliases = map[string]Unit{
	"s": UnitSecond, "sec": UnitSecond, "secs": UnitSecond, "second": UnitSecond, "seconds": UnitSecond,
	"m": UnitMinute, "min": UnitMinute, "mins": UnitMinute, "minute": UnitMinute, "minutes": UnitMinute,
	"h": UnitHour, "hr": UnitHour, "hrs": UnitHour, "hour": UnitHour, "hours": UnitHour,
	"d": UnitDay, "day": UnitDay, "days": UnitDay,
	"w": UnitWeek, "wk": UnitWeek, "week": UnitWeek, "weeks": UnitWeek,
	"mo": UnitMonth, "mon": UnitMonth, "month": UnitMonth, "months": UnitMonth,
	"y": UnitYear, "yr": UnitYear, "year": UnitYear, "years": UnitYear,
}

// maxCalendarYears bounds day and longer periods.
const maxCalendarYears = 1000

// maxCount is the largest count accepted per unit. Clock units are bounded
// by time.Duration, calendar units by maxCalendarYears.
var maxCount = map[Unit]int64{
	UnitSecond: math.MaxInt64 / int64(time.Second),
	UnitMinute: math.MaxInt64 / int64(time.Minute),
	UnitHour:   math.MaxInt64 / int64(time.Hour),
	UnitDay:    366 * maxCalendarYears,
	UnitWeek:   53 * maxCalendarYears,
	UnitMonth:  12 * maxCalendarYears,
	UnitYear:   maxCalendarYears,
}

// Period is a positive count of a unit, such as "30 days".
type Period struct {
	N    int
	Unit Unit
}

// ParsePeriod parses "<count> <unit>" where count is a positive integer and
// unit is a second through year, singular, plural or abbreviated.
// "30 days", "30days" and "30d" are equivalent.
func ParsePeriod(s string) (Period, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))

	matches := periodPattern.FindStringSubmatch(normalized)
	if matches == nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}

	unit, ok := unitAliases[matches[2]]
	if !ok {
		return Period{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidPeriod, matches[2])
	}

	n, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil || n <= 0 {
		return Period{}, fmt.Errorf("%w: count must be a positive integer: %q", ErrInvalidPeriod, s)
	}

	if n > maxCount[unit] {
		return Period{}, fmt.Errorf("%w: %q exceeds the maximum of %d %ss",
			ErrInvalidPeriod, s, maxCount[unit], unit)
	}

	return Period{N: int(n), Unit: unit}, nil
}

// Cutoff returns the instant that lies one period before now. Days and
// longer units follow the calendar, so "1 month" before March 31 is
// March 3 (or 2 in leap years), as AddDate normalizes.
func (p Period) Cutoff(now time.Time) time.Time {
	switch p.Unit {
	case UnitSecond:
		return now.Add(-time.Duration(p.N) * time.Second)
	case UnitMinute:
		return now.Add(-time.Duration(p.N) * time.Minute)
	case UnitHour:
		return now.Add(-time.Duration(p.N) * time.Hour)
	case UnitDay:
		return now.AddDate(0, 0, -p.N)
	case UnitWeek:
		return now.AddDate(0, 0, -7*p.N)
	case UnitMonth:
		return now.AddDate(0, -p.N, 0)
	case UnitYear:
		return now.AddDate(-p.N, 0, 0)
	default:
		return now
	}
}

func (p Period) String() string {
	if p.N == 1 {
		return fmt.Sprintf("1 %s", p.Unit)
	}

	return fmt.Sprintf("%d %ss", p.N, p.Unit)
}
