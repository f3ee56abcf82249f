package utils

import (
	"testing"
	"time"
)

func TestDateRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	from, to := DateRange(30, now)
	if from != "2024-02-14" {
		t.Errorf("from = %q, want 2024-02-14", from)
	}
	if to != "2024-03-15" {
		t.Errorf("to = %q, want 2024-03-15", to)
	}
}

func TestDateRangeUsesUTC(t *testing.T) {
	// 22:00 on the 15th in New York is already the 16th in UTC.
	now := time.Date(2024, 3, 15, 22, 0, 0, 0, Eastern)
	_, to := DateRange(30, now)
	if to != "2024-03-16" {
		t.Errorf("to = %q, want 2024-03-16", to)
	}
}

func TestFormattedDate(t *testing.T) {
	got := FormattedDate(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	if got != "Saturday, October 17, 2026" {
		t.Errorf("FormattedDate = %q", got)
	}
}

func TestValidDate(t *testing.T) {
	if !ValidDate("2024-02-29") {
		t.Error("expected 2024-02-29 to be valid")
	}
	for _, s := range []string{"", "2024-13-01", "03/15/2024", "2023-02-29"} {
		if ValidDate(s) {
			t.Errorf("ValidDate(%q) = true, want false", s)
		}
	}
}

func TestMarketOpenClose(t *testing.T) {
	date := time.Date(2026, 2, 18, 12, 0, 0, 0, Eastern)

	open := MarketOpenTime(date)
	if open.Hour() != 9 || open.Minute() != 30 {
		t.Errorf("MarketOpenTime = %v, want 09:30", open)
	}

	close := MarketCloseTime(date)
	if close.Hour() != 16 || close.Minute() != 0 {
		t.Errorf("MarketCloseTime = %v, want 16:00", close)
	}
}

func TestIsMarketOpenAt(t *testing.T) {
	// Wednesday at 10:00 AM ET
	if !IsMarketOpenAt(time.Date(2026, 2, 18, 10, 0, 0, 0, Eastern)) {
		t.Error("Expected market to be open on Wednesday 10:00 AM")
	}
	// Saturday
	if IsMarketOpenAt(time.Date(2026, 2, 21, 10, 0, 0, 0, Eastern)) {
		t.Error("Expected market to be closed on Saturday")
	}
	// Before open
	if IsMarketOpenAt(time.Date(2026, 2, 18, 9, 29, 0, 0, Eastern)) {
		t.Error("Expected market to be closed at 9:29 AM")
	}
	// Exactly at close
	if IsMarketOpenAt(time.Date(2026, 2, 18, 16, 0, 0, 0, Eastern)) {
		t.Error("Expected market to be closed at 4:00 PM")
	}
	// Thanksgiving
	if IsMarketOpenAt(time.Date(2026, 11, 26, 11, 0, 0, 0, Eastern)) {
		t.Error("Expected market to be closed on Thanksgiving")
	}
}

func TestMarketStatusAt(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 2, 18, 3, 0, 0, 0, Eastern), "CLOSED"},
		{time.Date(2026, 2, 18, 7, 0, 0, 0, Eastern), "PRE-MARKET"},
		{time.Date(2026, 2, 18, 11, 0, 0, 0, Eastern), "OPEN"},
		{time.Date(2026, 2, 18, 17, 0, 0, 0, Eastern), "AFTER-HOURS"},
		{time.Date(2026, 2, 18, 21, 0, 0, 0, Eastern), "CLOSED"},
		{time.Date(2026, 2, 22, 11, 0, 0, 0, Eastern), "CLOSED (Weekend)"},
		{time.Date(2026, 12, 25, 11, 0, 0, 0, Eastern), "CLOSED (Christmas Day)"},
	}
	for _, tt := range tests {
		if got := MarketStatusAt(tt.at); got != tt.want {
			t.Errorf("MarketStatusAt(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}
