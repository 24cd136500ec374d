// Package markethours decides which bars fall inside an exchange trading
// session and filters series down to them.
package markethours

import (
	"fmt"
	"time"

	"trading-analytics/internal/series"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// NSE cash market hours in IST.
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30
)

// Session is a daily trading window in a fixed location. Weekends and the
// listed holidays are closed all day.
type Session struct {
	Name     string
	Location *time.Location
	Open     time.Duration // offset from local midnight
	Close    time.Duration
	holidays map[string]bool
}

// NSE returns the National Stock Exchange session with its published holidays.
func NSE() *Session {
	s := &Session{
		Name:     "NSE",
		Location: IST,
		Open:     OpenHour*time.Hour + OpenMinute*time.Minute,
		Close:    CloseHour*time.Hour + CloseMinute*time.Minute,
		holidays: make(map[string]bool, len(nseHolidays)),
	}
	for _, d := range nseHolidays {
		s.holidays[d] = true
	}
	return s
}

// AddHolidays marks extra closed dates, formatted 2006-01-02.
func (s *Session) AddHolidays(dates ...string) error {
	if s.holidays == nil {
		s.holidays = make(map[string]bool)
	}
	for _, d := range dates {
		if _, err := time.ParseInLocation(time.DateOnly, d, s.Location); err != nil {
			return fmt.Errorf("markethours: holiday %q: %w", d, err)
		}
		s.holidays[d] = true
	}
	return nil
}

// IsHoliday reports whether t falls on a listed holiday in session time.
func (s *Session) IsHoliday(t time.Time) bool {
	return s.holidays[t.In(s.Location).Format(time.DateOnly)]
}

// IsTradingDay returns true if t is Mon–Fri and not a holiday.
func (s *Session) IsTradingDay(t time.Time) bool {
	wd := t.In(s.Location).Weekday()
	return wd >= time.Monday && wd <= time.Friday && !s.IsHoliday(t)
}

func (s *Session) sinceMidnight(t time.Time) time.Duration {
	lt := t.In(s.Location)
	midnight := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, s.Location)
	return lt.Sub(midnight)
}

// IsOpen returns true if t falls within [open, close) on a trading day.
func (s *Session) IsOpen(t time.Time) bool {
	if !s.IsTradingDay(t) {
		return false
	}
	d := s.sinceMidnight(t)
	return d >= s.Open && d < s.Close
}

// Contains reports whether the whole bar lies inside one session: it begins
// at or after the open and ends at or before the close of the same day.
func (s *Session) Contains(b series.Bar) bool {
	if !s.IsOpen(b.BeginTime) {
		return false
	}
	begin, end := b.BeginTime.In(s.Location), b.EndTime.In(s.Location)
	if end.YearDay() != begin.YearDay() || end.Year() != begin.Year() {
		return false
	}
	return s.sinceMidnight(end) <= s.Close
}

// OpenUTC is the session open as an offset from UTC midnight, used to align
// resampled candles to the open.
func (s *Session) OpenUTC() time.Duration {
	open := time.Date(2024, time.January, 1, 0, 0, 0, 0, s.Location).Add(s.Open).UTC()
	return open.Sub(time.Date(open.Year(), open.Month(), open.Day(), 0, 0, 0, 0, time.UTC))
}

// NextOpen returns the next session open strictly after t.
func (s *Session) NextOpen(t time.Time) time.Time {
	lt := t.In(s.Location)
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, s.Location)
	// holidays and weekends never span more than a couple of weeks
	for i := 0; i < 15; i++ {
		open := day.Add(s.Open)
		if open.After(t) && s.IsTradingDay(open) {
			return open
		}
		day = day.AddDate(0, 0, 1)
	}
	return day.Add(s.Open)
}

// Filter returns a copy of src holding only the bars inside the session,
// and how many bars were dropped.
func (s *Session) Filter(src *series.BarSeries) (*series.BarSeries, int, error) {
	out := series.New(src.Name(), src.Factory())
	dropped := 0
	for i := 0; i < src.BarCount(); i++ {
		b := src.Bar(i)
		if !s.Contains(b) {
			dropped++
			continue
		}
		if err := out.AddBar(b); err != nil {
			return nil, dropped, err
		}
	}
	return out, dropped, nil
}
