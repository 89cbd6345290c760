package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
)

// DailyReport counts who showed up on one calendar date.
type DailyReport struct {
	Date     time.Time
	Enrolled int
	Present  int
	Late     int
	Text     string
}

// DailyReport builds the report for the date of day in the service location.
// Only employees enrolled before the end of that day are counted.
func (s *Service) DailyReport(ctx context.Context, day time.Time) (DailyReport, error) {
	day = attendance.StartOfDay(day.In(s.loc))
	_, end := attendance.DayBounds(day)

	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		return DailyReport{}, err
	}
	events, err := s.ledger.EventsOn(ctx, day)
	if err != nil {
		return DailyReport{}, err
	}

	r := DailyReport{Date: day}
	for _, e := range employees {
		if e.CreatedAt.Before(end) {
			r.Enrolled++
		}
	}

	// events are ascending, so the first one seen per employee counts
	seen := make(map[attendance.EmployeeID]bool)
	for _, ev := range events {
		if seen[ev.EmployeeID] {
			continue
		}
		seen[ev.EmployeeID] = true
		r.Present++
		if ev.IsLate() {
			r.Late++
		}
	}

	r.Text = fmt.Sprintf("Attendance for %s: %d of %d present, %d late.",
		day.Format("Monday 2 January 2006"), r.Present, r.Enrolled, r.Late)
	return r, nil
}

// =============================================================================
// SCHEDULER
// =============================================================================

// ReportScheduler announces the daily report once per working day, on the
// first check after At.
//
// USAGE:
//
//	scheduler := NewReportScheduler(svc, at, log)
//	scheduler.Start()
//	// ... later
//	scheduler.Stop()
type ReportScheduler struct {
	Service       *Service
	At            attendance.ClockTime
	CheckInterval time.Duration

	log      *slog.Logger
	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	lastDate time.Time
}

func NewReportScheduler(svc *Service, at attendance.ClockTime, log *slog.Logger) *ReportScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &ReportScheduler{
		Service:       svc,
		At:            at,
		CheckInterval: time.Minute,
		log:           log,
	}
}

// Start begins the background loop.
func (rs *ReportScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		return
	}
	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)
	go rs.run(rs.ticker, rs.stop)

	rs.log.Info("daily report scheduler started", "at", rs.At.String(), "interval", rs.CheckInterval)
}

// Stop stops the loop and waits for a running report to finish.
func (rs *ReportScheduler) Stop() {
	rs.mu.Lock()
	if rs.ticker == nil {
		rs.mu.Unlock()
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.ticker = nil
	rs.mu.Unlock()

	rs.wg.Wait()
	rs.log.Info("daily report scheduler stopped")
}

func (rs *ReportScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	for {
		select {
		case <-ticker.C:
			if _, err := rs.RunDue(context.Background()); err != nil {
				rs.log.Error("daily report failed", "error", err)
			}
		case <-stop:
			return
		}
	}
}

// RunDue sends today's report if it is a working day, the report time has
// passed and it was not sent yet. It reports whether a report was sent.
func (rs *ReportScheduler) RunDue(ctx context.Context) (bool, error) {
	now := rs.Service.now().In(rs.Service.loc)
	today := attendance.StartOfDay(now)
	if attendance.IsWeekend(now) || now.Before(rs.At.On(now)) {
		return false, nil
	}

	rs.mu.Lock()
	done := rs.lastDate.Equal(today)
	rs.mu.Unlock()
	if done {
		return false, nil
	}

	report, err := rs.Service.DailyReport(ctx, now)
	if err != nil {
		return false, err
	}
	rs.Service.notifier.Notify(report.Text)

	rs.mu.Lock()
	rs.lastDate = today
	rs.mu.Unlock()

	rs.log.Info("daily report sent", "date", today.Format("2006-01-02"), "present", report.Present, "late", report.Late)
	return true, nil
}

// NextRunTime is the next moment RunDue would send a report.
func (rs *ReportScheduler) NextRunTime() time.Time {
	now := rs.Service.now().In(rs.Service.loc)
	rs.mu.Lock()
	last := rs.lastDate
	rs.mu.Unlock()

	day := now
	for i := 0; i < 8; i++ {
		at := rs.At.On(day)
		if !attendance.IsWeekend(day) && !last.Equal(attendance.StartOfDay(day)) {
			if at.After(now) {
				return at
			}
			if attendance.StartOfDay(day).Equal(attendance.StartOfDay(now)) {
				return now
			}
		}
		day = attendance.StartOfDay(day).AddDate(0, 0, 1)
	}
	return time.Time{}
}
