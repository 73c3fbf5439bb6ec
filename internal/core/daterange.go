package core

import (
	"strings"
	"time"
)

// DefaultWindowDays is how far back a listing reaches when no "from" is given.
const DefaultWindowDays = 30

// MaxSummaryDays bounds a summary window, which carries one entry per day.
const MaxSummaryDays = 366

const secondsPerDay = 24 * 60 * 60

// DateRange is an inclusive calendar-date window.
type DateRange struct {
	From Date
	To   Date
}

// ResolveDateRange turns the optional from/to query values into a window.
// Missing bounds default independently: to = today, from = to - 30 days.
// Malformed dates and from > to are validation errors, never silent fallbacks.
func ResolveDateRange(from, to string, now time.Time) (DateRange, error) {
	verr := NewValidationError()
	var r DateRange

	if v := strings.TrimSpace(to); v != "" {
		d, err := ParseDate(v)
		if err != nil {
			verr.Add("to", err.Error())
		}
		r.To = d
	} else {
		r.To = DateOf(now)
	}

	if v := strings.TrimSpace(from); v != "" {
		d, err := ParseDate(v)
		if err != nil {
			verr.Add("from", err.Error())
		}
		r.From = d
	} else if !r.To.IsZero() {
		r.From = r.To.AddDays(-DefaultWindowDays)
	}

	if !verr.Empty() {
		return DateRange{}, verr
	}
	if r.From.After(r.To.Time) {
		return DateRange{}, FieldError("from", "must not be after to")
	}
	return r, nil
}

// Days is the number of calendar days covered, both ends included.
func (r DateRange) Days() int {
	return int((r.To.Unix()-r.From.Unix())/secondsPerDay) + 1
}

// Previous is the window of equal length that ends the day before r.From.
func (r DateRange) Previous() DateRange {
	n := r.Days()
	return DateRange{
		From: r.From.AddDays(-n),
		To:   r.From.AddDays(-1),
	}
}

// Each calls fn for every date in the range in ascending order.
func (r DateRange) Each(fn func(Date)) {
	for d := r.From; !d.After(r.To.Time); d = d.AddDays(1) {
		fn(d)
	}
}
