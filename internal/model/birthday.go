package model

import "time"

// BirthdayWindowDays is how far ahead the upcoming-birthdays query looks.
const BirthdayWindowDays = 7

// BirthdayWindow is an inclusive range of month-days, compared as MM-DD
// strings. When the range crosses the new year Start is greater than End.
type BirthdayWindow struct {
	Start string
	End   string
}

// NewBirthdayWindow returns the window [today, today+days].
func NewBirthdayWindow(today time.Time, days int) BirthdayWindow {
	start := DateOf(today)
	end := Date{start.AddDate(0, 0, days)}
	return BirthdayWindow{Start: start.MonthDay(), End: end.MonthDay()}
}

// Wraps reports whether the window crosses December 31.
func (w BirthdayWindow) Wraps() bool {
	return w.Start > w.End
}

// Contains reports whether the month-day of d falls inside the window. The
// birth year is ignored.
func (w BirthdayWindow) Contains(d Date) bool {
	if d.IsZero() {
		return false
	}
	md := d.MonthDay()
	if w.Wraps() {
		return md >= w.Start || md <= w.End
	}
	return md >= w.Start && md <= w.End
}
