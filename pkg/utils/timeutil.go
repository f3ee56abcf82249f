package utils

import (
	"time"
)

// DateLayout is the calendar date form the aggregates endpoint expects.
const DateLayout = "2006-01-02"

// Eastern is the US/Eastern location used for NYSE and Nasdaq session times.
var Eastern *time.Location

func init() {
	var err error
	Eastern, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST when the tz database is not available
		Eastern = time.FixedZone("EST", -5*60*60)
	}
}

// DateRange returns the trailing window of days ending at now, as UTC
// calendar dates in DateLayout form.
func DateRange(days int, now time.Time) (from, to string) {
	now = now.UTC()
	return now.AddDate(0, 0, -days).Format(DateLayout), now.Format(DateLayout)
}

// FormattedDate renders t like "Saturday, October 17, 2026".
func FormattedDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

// ValidDate reports whether s is a calendar date in DateLayout form.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// MarketOpenTime returns the regular session open (9:30 AM ET) for a date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, Eastern)
}

// MarketCloseTime returns the regular session close (4:00 PM ET) for a date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, Eastern)
}

// PreMarketStart returns the pre-market session start (4:00 AM ET).
func PreMarketStart(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 4, 0, 0, 0, Eastern)
}

// AfterHoursEnd returns the end of the after-hours session (8:00 PM ET).
func AfterHoursEnd(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 20, 0, 0, 0, Eastern)
}

// IsTradingDay reports whether t falls on a weekday that is not an exchange holiday.
func IsTradingDay(t time.Time) bool {
	t = t.In(Eastern)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// IsTradingHoliday reports whether t is a full-day US exchange holiday.
// The list needs updating every year.
func IsTradingHoliday(t time.Time) bool {
	_, ok := usHolidays2026[t.In(Eastern).Format(DateLayout)]
	return ok
}

// IsMarketOpenAt reports whether the regular session is open at t.
func IsMarketOpenAt(t time.Time) bool {
	if !IsTradingDay(t) {
		return false
	}
	return !t.Before(MarketOpenTime(t)) && t.Before(MarketCloseTime(t))
}

// US exchange holidays for 2026.
var usHolidays2026 = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// MarketStatusAt describes the US equity session at t.
func MarketStatusAt(t time.Time) string {
	t = t.In(Eastern)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if name, ok := usHolidays2026[t.Format(DateLayout)]; ok {
		return "CLOSED (" + name + ")"
	}

	switch {
	case t.Before(PreMarketStart(t)):
		return "CLOSED"
	case t.Before(MarketOpenTime(t)):
		return "PRE-MARKET"
	case t.Before(MarketCloseTime(t)):
		return "OPEN"
	case t.Before(AfterHoursEnd(t)):
		return "AFTER-HOURS"
	default:
		return "CLOSED"
	}
}

// MarketStatus describes the US equity session right now.
func MarketStatus() string {
	return MarketStatusAt(time.Now())
}
