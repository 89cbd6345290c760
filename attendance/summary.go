/*
summary.go - Monthly accounting

PURPOSE:
  Aggregates one employee's ledger events over a calendar month.

ALGORITHM:
  1. Month interval [first day, first day of next month) in the given location
  2. Events sorted ascending by timestamp
  3. Group by calendar date; the FIRST event of each date represents it
     (later check-ins on the same date are ignored)
  4. PresentDays    = distinct dates with an event
  5. LateDays       = representative events with lateness > 0
  6. TotalLate      = sum of representative lateness
  7. WorkingDays    = Monday-Friday dates in the month (no holidays)
  8. AbsentDays     = max(0, WorkingDays - PresentDays)

  Weekend check-ins count as present days, which is why absence is clamped.
*/
package attendance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the monthly statistics for one employee.
type Summary struct {
	Year             int
	Month            time.Month
	PresentDays      int
	LateDays         int
	AbsentDays       int
	WorkingDays      int
	TotalLateMinutes int
	// AttendanceRate is PresentDays / WorkingDays as a percentage, 2 places.
	AttendanceRate decimal.Decimal
	Days           []DaySummary
}

// DaySummary describes the representative (first) check-in of a date.
type DaySummary struct {
	Date            time.Time
	FirstCheckIn    time.Time
	LatenessMinutes int
	CheckIns        int
}

func (d DaySummary) Late() bool { return d.LatenessMinutes > 0 }

// Summarize computes the monthly statistics. Events outside the month are
// ignored; input order does not matter.
func Summarize(events []Event, year int, month time.Month, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	from, to := MonthBounds(year, month, loc)

	sorted := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.At.Before(from) || !ev.At.Before(to) {
			continue
		}
		sorted = append(sorted, ev)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	var days []DaySummary
	index := make(map[time.Time]int)
	for _, ev := range sorted {
		at := ev.At.In(loc)
		date := StartOfDay(at)
		if i, seen := index[date]; seen {
			days[i].CheckIns++
			continue
		}
		index[date] = len(days)
		days = append(days, DaySummary{
			Date:            date,
			FirstCheckIn:    at,
			LatenessMinutes: ev.LatenessMinutes,
			CheckIns:        1,
		})
	}

	s := Summary{
		Year:        year,
		Month:       month,
		PresentDays: len(days),
		WorkingDays: WorkingDays(year, month),
		Days:        days,
	}
	for _, d := range days {
		if d.Late() {
			s.LateDays++
		}
		s.TotalLateMinutes += d.LatenessMinutes
	}
	s.AbsentDays = max(0, s.WorkingDays-s.PresentDays)
	s.AttendanceRate = attendanceRate(s.PresentDays, s.WorkingDays)
	return s
}

func attendanceRate(present, working int) decimal.Decimal {
	if working == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(present)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(working))).
		Round(2)
}
